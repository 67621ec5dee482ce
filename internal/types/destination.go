package types

import "fmt"

// Destination is an immutable, pre-configured PostgreSQL endpoint
// addressable by its ordinal position in configuration.
type Destination struct {
	Host     string `yaml:"host"`
	Port     uint16 `yaml:"port"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

// DisplayName renders the "role@host:port" form used by the settings API.
func (d Destination) DisplayName() string {
	return fmt.Sprintf("%s@%s:%d", d.Role, d.Host, d.Port)
}
