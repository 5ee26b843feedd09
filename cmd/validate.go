package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conveyci/convey/types"
	"github.com/conveyci/convey/validate"
)

var strict bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate convey.yaml against the schema and semantic rules",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	result := &validate.ValidationResult{}

	schemaErrs, err := validate.ValidatePipelineYAML(data)
	if err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	result.Errors = append(result.Errors, schemaErrs...)

	// Semantic checks only make sense on a document the schema accepts.
	if len(schemaErrs) == 0 {
		cfg, err := types.ParsePipelineConfig(data)
		if err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
		semantic := validate.ValidatePipelineConfig(cfg)
		result.Errors = append(result.Errors, semantic.Errors...)
		result.Warnings = append(result.Warnings, semantic.Warnings...)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", e)
	}

	if strict && len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d warning(s) treated as errors in strict mode", len(result.Warnings))
	}

	if !result.IsValid() {
		return fmt.Errorf("validation failed: %d error(s)", len(result.Errors))
	}

	fmt.Println("Validation passed.")
	return nil
}
