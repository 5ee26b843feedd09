package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initForce bool

const starterConfig = `# Convey pipeline configuration.
pipeline: my-service
repository: registry.example.com/acme/my-service

registry:
  url: registry.example.com

build:
  context: .
  dockerfile: Dockerfile

environment:
  image: docker:27-cli

secrets:
  provider: ssm
  region: us-east-1
  prefix: /convey/my-service

deploy:
  kind: ecs
  cluster: prod
  service: my-service
  # track: latest deploys the floating tag; version pins to the run number.
  track: latest

stages:
  - name: build
    action: build
  - name: publish
    action: publish
    secrets: [registry_username, registry_password]
    retry:
      max_attempts: 2
      backoff: 5s
  - name: trigger
    action: trigger
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter convey.yaml",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	if err := os.WriteFile(cfgPath, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote %s. Edit it, then try: convey run --commit <sha>\n", cfgPath)
	return nil
}
