package config

import "os"

type Config struct {
	ListenAddr        string
	DBPath            string
	ExtractionBackend string
	OllamaHost        string
	OllamaModel       string
	ClaudeAPIKey      string
	ClaudeModel       string
	GeminiAPIKey      string
	GeminiModel       string
	DocGenURL         string
	DocGenAPIKey      string
	ScanDir           string
	CompanyName       string
	CompanyAddress    string
	CompanyPhone      string
	CompanyEmail      string
	CompanyVATNumber  string
	LogLevel          string
	LogFile           string
}

func Load() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "/data/sparkinv.db"),
		ExtractionBackend: getEnv("EXTRACTION_BACKEND", "ollama"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:      getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:       getEnv("CLAUDE_MODEL", "claude-3-5-sonnet-latest"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		DocGenURL:         getEnv("DOCGEN_URL", ""),
		DocGenAPIKey:      getEnv("DOCGEN_API_KEY", ""),
		ScanDir:           getEnv("SCAN_DIR", "/data/scans"),
		CompanyName:       getEnv("COMPANY_NAME", ""),
		CompanyAddress:    getEnv("COMPANY_ADDRESS", ""),
		CompanyPhone:      getEnv("COMPANY_PHONE", ""),
		CompanyEmail:      getEnv("COMPANY_EMAIL", ""),
		CompanyVATNumber:  getEnv("COMPANY_VAT_NUMBER", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
