package taruvi

import "os"

// FunctionContext describes the execution environment when code runs inside a
// managed function sandbox. The SDK treats it purely as an alternate
// configuration source: values flow into Config and tracing headers, nothing
// else inspects it.
type FunctionContext struct {
	FunctionID   string
	FunctionName string
	ExecutionID  string
	Tenant       string
	AppSlug      string
	SiteSlug     string
	APIURL       string
	FunctionKey  string
	UserID       string
	UserEmail    string
}

// InsideFunctionRuntime reports whether the process is executing inside a
// managed function sandbox.
func InsideFunctionRuntime() bool {
	return os.Getenv(envPrefix+"FUNCTION_RUNTIME") == "true"
}

// CurrentFunctionContext returns the sandbox execution context, or nil when
// running as an external application.
func CurrentFunctionContext() *FunctionContext {
	if !InsideFunctionRuntime() {
		return nil
	}
	return &FunctionContext{
		FunctionID:   os.Getenv(envPrefix + "FUNCTION_ID"),
		FunctionName: os.Getenv(envPrefix + "FUNCTION_NAME"),
		ExecutionID:  os.Getenv(envPrefix + "EXECUTION_ID"),
		Tenant:       os.Getenv(envPrefix + "TENANT"),
		AppSlug:      os.Getenv(envPrefix + "APP_SLUG"),
		SiteSlug:     os.Getenv(envPrefix + "SITE_SLUG"),
		APIURL:       os.Getenv(envPrefix + "API_URL"),
		FunctionKey:  os.Getenv(envPrefix + "FUNCTION_KEY"),
		UserID:       os.Getenv(envPrefix + "USER_ID"),
		UserEmail:    os.Getenv(envPrefix + "USER_EMAIL"),
	}
}

// applyRuntime overlays sandbox-provided values onto c. The function key seeds
// the credential so a zero-config client works inside the sandbox.
func (c *Config) applyRuntime(fc *FunctionContext) {
	if fc == nil {
		return
	}
	if fc.APIURL != "" {
		c.APIURL = fc.APIURL
	}
	if fc.AppSlug != "" {
		c.AppSlug = fc.AppSlug
	}
	if fc.SiteSlug != "" {
		c.SiteSlug = fc.SiteSlug
	}
	if c.APIKey == "" && fc.FunctionKey != "" {
		c.APIKey = fc.FunctionKey
	}
}
