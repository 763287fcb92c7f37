package config

const (
	DefaultOllamaHost    = "http://localhost:11434"
	DefaultModel         = "bippy/luna1"
	DefaultUsername      = "bippy"
	DefaultCatalogListen = ":1337"
)

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/lunatui",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Ollama: OllamaConfig{
			Host:         DefaultOllamaHost,
			DefaultModel: DefaultModel,
		},
		Export: ExportConfig{
			Username: DefaultUsername,
		},
		Catalog: CatalogConfig{
			Listen: DefaultCatalogListen,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# lunatui System Configuration
# Location: ~/.config/lunatui/settings.toml
# This file uses TOML format: https://toml.io

# Directory where conversation history and user config are stored
data_directory = "~/.local/share/lunatui"
`
}

func GenerateUserConfigTemplate() string {
	return `# lunatui User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[ollama]
# Ollama server URL
host = "http://localhost:11434"

# Model the conversation is sent to
default_model = "bippy/luna1"

[export]
# Name recorded in the begin marker of exported conversations
username = "bippy"

# Where exported conversations are written (default: <data_directory>/exports)
# directory = "~/Documents/luna-exports"

[catalog]
# Address the catalog feed server listens on ("lunatui serve")
listen = ":1337"

# Default system prompt for the session (optional)
# Example: "You are a helpful assistant named Luna."
default_system_prompt = ""
`
}
