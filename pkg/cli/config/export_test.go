package config

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, signingSecret, apiURL string, pageSize int) *Slack {
	return &Slack{
		botToken:      botToken,
		signingSecret: signingSecret,
		apiURL:        apiURL,
		pageSize:      pageSize,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewAppForTest creates an App config for testing purposes
func NewAppForTest(path string) *App {
	return &App{path: path}
}

var Redactor = redactor
