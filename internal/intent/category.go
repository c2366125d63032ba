// internal/intent/category.go
package intent

import "strings"

// Intent categories group intents for routing and reporting.
const (
	CategoryInputAdvice     = "input_advice"
	CategoryProblemSolving  = "problem_solving"
	CategoryInformation     = "information"
	CategoryMarketInfo      = "market_info"
	CategoryWaterManagement = "water_management"
	CategorySoilManagement  = "soil_management"
	CategoryFarmingAdvice   = "farming_advice"
)

var intentCategories = map[string]string{
	"seed_inquiry":      CategoryInputAdvice,
	"fertilizer_advice": CategoryInputAdvice,
	"crop_disease":      CategoryProblemSolving,
	"pest_control":      CategoryProblemSolving,
	"weather_inquiry":   CategoryInformation,
	"government_scheme": CategoryInformation,
	"market_price":      CategoryMarketInfo,
	"selling_advice":    CategoryMarketInfo,
	"irrigation":        CategoryWaterManagement,
	"soil_health":       CategorySoilManagement,
	"planting_time":     CategoryFarmingAdvice,
	"harvesting":        CategoryFarmingAdvice,
	"general_help":      CategoryFarmingAdvice,
}

// CategoryOf maps an intent onto its category. Unlisted intents are matched by
// name fragment and default to farming advice.
func CategoryOf(intent string) string {
	if c, ok := intentCategories[intent]; ok {
		return c
	}
	switch {
	case strings.Contains(intent, "seed"), strings.Contains(intent, "fertili"):
		return CategoryInputAdvice
	case strings.Contains(intent, "disease"), strings.Contains(intent, "pest"):
		return CategoryProblemSolving
	case strings.Contains(intent, "market"), strings.Contains(intent, "price"), strings.Contains(intent, "sell"):
		return CategoryMarketInfo
	case strings.Contains(intent, "irrigat"), strings.Contains(intent, "water"):
		return CategoryWaterManagement
	case strings.Contains(intent, "soil"):
		return CategorySoilManagement
	case strings.Contains(intent, "weather"), strings.Contains(intent, "scheme"), strings.Contains(intent, "loan"), strings.Contains(intent, "insurance"):
		return CategoryInformation
	default:
		return CategoryFarmingAdvice
	}
}
