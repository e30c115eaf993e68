// Command sontag renders Sontag templates from the command line.
//
// Usage:
//
//	sontag render page.html --context data.yaml
//	sontag render page.html --root ./templates --out page.out --strict
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marceljs/sontag/pkg/sontag"
)

var (
	contextFile string
	outFile     string
	rootDir     string
	strictMode  bool
	logLevel    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sontag",
		Short:         "Render Sontag templates",
		Long:          "sontag renders Sontag template files with data from YAML context files.",
		Version:       sontag.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRenderCmd())
	return rootCmd
}

func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(args[0])
		},
	}

	renderCmd.Flags().StringVarP(&contextFile, "context", "c", "", "YAML file with template context data")
	renderCmd.Flags().StringVarP(&outFile, "out", "o", "", "write output to file instead of stdout")
	renderCmd.Flags().StringVar(&rootDir, "root", ".", "template root directory")
	renderCmd.Flags().BoolVar(&strictMode, "strict", false, "fail on unresolved identifiers")
	renderCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, off)")
	return renderCmd
}

func runRender(name string) error {
	config := sontag.ConfigFromEnvironment()
	if strictMode {
		config.StrictMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if err := config.Validate(); err != nil {
		return err
	}
	sontag.SetGlobalConfig(config)

	context, err := loadContext(contextFile)
	if err != nil {
		return err
	}

	engine := sontag.New(
		sontag.WithConfig(config),
		sontag.WithLoader(sontag.NewFileLoader(rootDir)),
	)

	output, err := engine.Render(name, context)
	if err != nil {
		return err
	}

	if outFile == "" {
		fmt.Print(output)
		return nil
	}
	if err := os.WriteFile(outFile, []byte(output), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func loadContext(path string) (sontag.Context, error) {
	if path == "" {
		return sontag.Context{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	var context map[string]interface{}
	if err := yaml.Unmarshal(data, &context); err != nil {
		return nil, fmt.Errorf("failed to parse context file: %w", err)
	}
	return sontag.Context(context), nil
}
