// Package config handles loading and validating switchnode configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SWITCHNODE_*)
//   - Validation of required fields and the device topology
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
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
