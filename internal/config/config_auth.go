package config

// AuthConfig controls OAuth login mode and where refresh-token credentials
// are persisted. Mode is kept as a plain string (rather than importing
// internal/oauth.Mode) so this package has no dependency on the OAuth
// client; cmd/vibecore converts it at the point of use.
type AuthConfig struct {
	// Mode selects which Anthropic OAuth authorize endpoint `auth login`
	// uses: "max" or "console".
	Mode string `yaml:"mode"`

	// CredentialsDir overrides authstore's default data directory
	// (~/.local/share/vibecore) for the stored refresh token.
	CredentialsDir string `yaml:"credentials_dir"`
}
