// Package config handles loading and validating SIGPesq Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SIGPESQ_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, DSN, broker passwords) should come from the
//     environment or a .env file, not the YAML file
//   - The JWT secret is required and must be at least 32 characters
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
