// internal/workers/ai-conversation/llm-synthesis/prompts.go
package llmsynthesis

import (
	"fmt"
	"strconv"
	"strings"
)

var systemPrompts = map[string]string{
	"seed_inquiry": "आप एक अनुभवी कृषि विशेषज्ञ हैं जो किसानों को बीज के बारे में सलाह देते हैं। " +
		"आपको हिंदी में सरल और व्यावहारिक जानकारी देनी है। बीज की किस्म, बुआई का समय, मात्रा, और कहाँ से खरीदना है, इन सभी की जानकारी दें।",
	"fertilizer_advice": "आप एक मिट्टी और उर्वरक विशेषज्ञ हैं। किसानों को खाद और उर्वरक के बारे में सरल हिंदी में सलाह दें। " +
		"NPK अनुपात, मात्रा, समय, और कीमत की जानकारी दें। जैविक और रासायनिक दोनों विकल्प बताएं।",
	"crop_disease": "आप एक पौधों के रोग विशेषज्ञ हैं। फसल की बीमारी और कीट की समस्या का समाधान हिंदी में दें। " +
		"लक्षण पहचानना, इलाज, दवाई, और बचाव के तरीके बताएं। तुरंत करने वाले उपाय पर जोर दें।",
	"market_price": "आप एक कृषि मार्केटिंग विशेषज्ञ हैं। मंडी भाव, बाजार की स्थिति, और बेचने की सलाह हिंदी में दें। " +
		"कीमत के रुझान, बेहतर मंडी, और बिक्री का समय बताएं। eNAM और अन्य प्लेटफॉर्म की जानकारी दें।",
	"general": "आप एक अनुभवी किसान और कृषि सलाहकार हैं। किसानों की हर समस्या का समाधान सरल हिंदी में दें। " +
		"व्यावहारिक, तुरंत लागू होने वाली सलाह दें। स्थानीय परिस्थितियों को ध्यान में रखें।",
}

var topicLabels = map[string]string{
	"seed_inquiry":      "बीज की जानकारी और सलाह",
	"fertilizer_advice": "खाद और उर्वरक की सलाह",
	"crop_disease":      "फसल रोग और कीट नियंत्रण",
	"pest_control":      "फसल रोग और कीट नियंत्रण",
	"market_price":      "मंडी भाव और बाजार की जानकारी",
	"general":           "सामान्य कृषि सलाह",
}

var fallbackResponses = map[string]string{
	"seed_inquiry":      "बीज की जानकारी के लिए नजदीकी कृषि केंद्र या बीज भंडार से संपर्क करें। अच्छी किस्म के प्रमाणित बीज ही खरीदें।",
	"fertilizer_advice": "मिट्टी परीक्षण कराकर उसके अनुसार संतुलित उर्वरक का प्रयोग करें। NPK अनुपात का ध्यान रखें।",
	"crop_disease":      "फसल में रोग के लक्षण दिखने पर तुरंत कृषि विशेषज्ञ से संपर्क करें। सही दवाई का छिड़काव करें।",
	"market_price":      "मंडी भाव की जानकारी के लिए eNAM पोर्टल देखें या स्थानीय मंडी से संपर्क करें।",
	"general":           "आपकी समस्या के लिए नजदीकी कृषि विज्ञान केंद्र या कृषि विभाग से संपर्क करें।",
}

var unwantedPrefixes = []string{
	"किसान जी,", "भाई साहब,", "जी हाँ,", "देखिए,",
	"आपको बताना चाहूंगा कि", "मेरी सलाह है कि",
}

func lookup(m map[string]string, intentName string) string {
	if v, ok := m[intentName]; ok {
		return v
	}
	return m["general"]
}

func (h *Handler) systemPrompt(intentName string) string {
	if h.config.SystemPrompt != "" {
		return h.config.SystemPrompt
	}
	return lookup(systemPrompts, intentName)
}

func buildUserPrompt(input *Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "किसान का सवाल: %q\n\n", input.Query)
	fmt.Fprintf(&b, "पहचाना गया विषय: %s\n", lookup(topicLabels, input.IntentAnalysis.PrimaryIntent))
	fmt.Fprintf(&b, "विश्वसनीयता: %.2f\n\n", input.IntentAnalysis.Confidence)

	e := input.Entities
	if !e.IsEmpty() {
		b.WriteString("पहचानी गई जानकारी:\n")
		if len(e.Crops) > 0 {
			fmt.Fprintf(&b, "- फसल: %s\n", strings.Join(e.Crops, ", "))
		}
		if len(e.Quantities) > 0 {
			qs := make([]string, len(e.Quantities))
			for i, q := range e.Quantities {
				qs[i] = strconv.FormatFloat(q.Value, 'f', -1, 64) + " " + q.Unit
			}
			fmt.Fprintf(&b, "- मात्रा: %s\n", strings.Join(qs, ", "))
		}
		if len(e.TimeRefs) > 0 {
			fmt.Fprintf(&b, "- समय: %s\n", strings.Join(e.TimeRefs, ", "))
		}
		if len(e.Seasons) > 0 {
			fmt.Fprintf(&b, "- मौसम: %s\n", strings.Join(e.Seasons, ", "))
		}
		b.WriteString("\n")
	}

	if input.Advice != nil && input.Advice.Text != "" {
		fmt.Fprintf(&b, "संदर्भ सलाह: %s\n\n", input.Advice.Text)
	}

	if input.Language == "en" {
		b.WriteString("Give this farmer practical advice in simple English, in 3-4 sentences.\n")
	} else {
		b.WriteString("कृपया इस किसान को व्यावहारिक और उपयोगी सलाह दें। जवाब हिंदी में, सरल भाषा में, और तुरंत लागू होने वाला हो।\n")
		b.WriteString("जवाब 3-4 वाक्यों में दें, बहुत लंबा न करें।\n")
	}
	return b.String()
}

// cleanResponse strips filler openings and, for Hindi answers, ensures a closing danda.
func cleanResponse(text, lang string) string {
	text = strings.TrimSpace(text)
	for _, p := range unwantedPrefixes {
		if strings.HasPrefix(text, p) {
			text = strings.TrimSpace(strings.TrimPrefix(text, p))
		}
	}
	text = strings.ReplaceAll(text, "।।", "।")
	if text == "" || lang == "en" {
		return text
	}
	if !strings.HasSuffix(text, "।") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "।"
	}
	return text
}

func fallbackText(input *Input) string {
	if input.Advice != nil && strings.TrimSpace(input.Advice.Text) != "" {
		return input.Advice.Text
	}
	text := lookup(fallbackResponses, input.IntentAnalysis.PrimaryIntent)
	if len(input.Entities.Crops) > 0 {
		text = strings.Join(input.Entities.Crops, ", ") + " के लिए " + text
	}
	return text
}
