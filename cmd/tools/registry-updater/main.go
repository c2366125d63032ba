// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/pkg/registry"
)

var registryPath string

var rootCmd = &cobra.Command{
	Use:          "registry-updater",
	Short:        "Maintain the worker activity registry",
	SilenceUsage: true,
}

var (
	addID, addDisplayName, addDescription, addCategory, addTaskType, addVersion, addStatus, addTimeout string
	addRetries                                                                                           int
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new activity to the registry",
	Example: `  registry-updater add --id detect-farmer-intent --displayName "Detect Farmer Intent" \
    --description "Classifies farmer queries" --category ai-conversation --taskType detect-farmer-intent`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if errors.Is(err, os.ErrNotExist) {
			reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
		}
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}

		status, err := registry.ParseStatus(addStatus)
		if err != nil {
			return err
		}
		err = reg.Add(registry.Activity{
			ID:          addID,
			DisplayName: addDisplayName,
			Description: addDescription,
			Category:    addCategory,
			Version:     addVersion,
			TaskType:    addTaskType,
			Status:      status,
			Input:       registry.Schema{},
			Output:      registry.Schema{},
			ErrorCodes:  []apperrors.ErrorCode{},
			Timeout:     addTimeout,
			Retries:     addRetries,
			Workflows:   []string{},
			Tags:        []string{},
		})
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", addID)
		return nil
	},
}

var updateID, updateField, updateValue string

var updateCmd = &cobra.Command{
	Use:     "update",
	Short:   "Update one field of an existing activity",
	Example: "  registry-updater update --id build-advice --field status --value verified",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Update(updateID, updateField, updateValue); err != nil {
			return err
		}
		if err := reg.Save(registryPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", updateID, updateField, updateValue)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the registry file",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		if len(reg.Activities) == 0 {
			return fmt.Errorf("registry contains no activities")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, a := range reg.Activities {
			fmt.Fprintf(out, "%-24s %-10s %-8s timeout=%s retries=%d\n", a.TaskType, a.Status, a.Version, a.Timeout, a.Retries)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&registryPath, "path", "configs/activity-registry.json", "path to registry file")

	addCmd.Flags().StringVar(&addID, "id", "", "activity ID (e.g. detect-farmer-intent)")
	addCmd.Flags().StringVar(&addDisplayName, "displayName", "", "display name")
	addCmd.Flags().StringVar(&addDescription, "description", "", "description")
	addCmd.Flags().StringVar(&addCategory, "category", "", "category (e.g. ai-conversation)")
	addCmd.Flags().StringVar(&addTaskType, "taskType", "", "Zeebe job type")
	addCmd.Flags().StringVar(&addVersion, "version", "1.0.0", "version")
	addCmd.Flags().StringVar(&addStatus, "status", "planned", "implementation status (planned, in-progress, completed, verified, deprecated)")
	addCmd.Flags().StringVar(&addTimeout, "timeout", "10s", "job timeout")
	addCmd.Flags().IntVar(&addRetries, "retries", 0, "job retries")
	for _, name := range []string{"id", "displayName", "description", "category", "taskType"} {
		_ = addCmd.MarkFlagRequired(name)
	}

	updateCmd.Flags().StringVar(&updateID, "id", "", "activity ID to update")
	updateCmd.Flags().StringVar(&updateField, "field", "", "field to update (status, version, timeout, retries...)")
	updateCmd.Flags().StringVar(&updateValue, "value", "", "new value for the field")
	for _, name := range []string{"id", "field", "value"} {
		_ = updateCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(addCmd, updateCmd, validateCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
