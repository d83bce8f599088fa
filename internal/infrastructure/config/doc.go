// Package config handles loading and validating DeviceLab controller configuration.
//
// This package manages:
//   - Loading configuration from YAML files (JSON files load too)
//   - Overriding with environment variables
//   - Deriving node identity from the hostname
//   - Validation of required fields and timer relationships
//
// Security Considerations:
//   - The remote credential should be set via DEVICELAB_REMOTE_CREDENTIAL
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.Name)
package config
