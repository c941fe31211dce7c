package config

// Overlay mirrors Config with every field optional. A nil field leaves the
// base value untouched; a set slice replaces the base slice wholesale.
type Overlay struct {
	Output *OutputOverlay `yaml:"output" toml:"output"`
	Parser *ParserOverlay `yaml:"parser" toml:"parser"`
	AI     *AIOverlay     `yaml:"ai" toml:"ai"`
	Cache  *CacheOverlay  `yaml:"cache" toml:"cache"`
}

type OutputOverlay struct {
	Directory *string `yaml:"directory" toml:"directory"`
	Format    *string `yaml:"format" toml:"format"`
}

type ParserOverlay struct {
	FilePatterns *[]string `yaml:"filePatterns" toml:"filePatterns"`
	Exclude      *[]string `yaml:"exclude" toml:"exclude"`
}

type MaxTokensOverlay struct {
	Overview *int `yaml:"overview" toml:"overview"`
	Function *int `yaml:"function" toml:"function"`
	Class    *int `yaml:"class" toml:"class"`
	Method   *int `yaml:"method" toml:"method"`
}

type AIOverlay struct {
	Provider          *string           `yaml:"provider" toml:"provider"`
	Model             *string           `yaml:"model" toml:"model"`
	Temperature       *float64          `yaml:"temperature" toml:"temperature"`
	MaxTokens         *MaxTokensOverlay `yaml:"maxTokens" toml:"maxTokens"`
	APIKey            *string           `yaml:"apiKey" toml:"apiKey"`
	BaseURL           *string           `yaml:"baseURL" toml:"baseURL"`
	Concurrency       *int              `yaml:"concurrency" toml:"concurrency"`
	RequestsPerMinute *int              `yaml:"requestsPerMinute" toml:"requestsPerMinute"`
	MaxRetries        *int              `yaml:"maxRetries" toml:"maxRetries"`
}

type CacheOverlay struct {
	Enabled *bool   `yaml:"enabled" toml:"enabled"`
	Path    *string `yaml:"path" toml:"path"`
}

// Merge applies o on top of base and returns the result. base is not
// modified; slices in the result never alias the overlay's.
func Merge(base Config, o Overlay) Config {
	out := base
	out.Parser.FilePatterns = cloneStrings(base.Parser.FilePatterns)
	out.Parser.Exclude = cloneStrings(base.Parser.Exclude)

	if o.Output != nil {
		set(&out.Output.Directory, o.Output.Directory)
		set(&out.Output.Format, o.Output.Format)
	}
	if o.Parser != nil {
		if o.Parser.FilePatterns != nil {
			out.Parser.FilePatterns = cloneStrings(*o.Parser.FilePatterns)
		}
		if o.Parser.Exclude != nil {
			out.Parser.Exclude = cloneStrings(*o.Parser.Exclude)
		}
	}
	if ai := o.AI; ai != nil {
		set(&out.AI.Provider, ai.Provider)
		set(&out.AI.Model, ai.Model)
		set(&out.AI.Temperature, ai.Temperature)
		set(&out.AI.APIKey, ai.APIKey)
		set(&out.AI.BaseURL, ai.BaseURL)
		set(&out.AI.Concurrency, ai.Concurrency)
		set(&out.AI.RequestsPerMinute, ai.RequestsPerMinute)
		set(&out.AI.MaxRetries, ai.MaxRetries)
		if mt := ai.MaxTokens; mt != nil {
			set(&out.AI.MaxTokens.Overview, mt.Overview)
			set(&out.AI.MaxTokens.Function, mt.Function)
			set(&out.AI.MaxTokens.Class, mt.Class)
			set(&out.AI.MaxTokens.Method, mt.Method)
		}
	}
	if o.Cache != nil {
		set(&out.Cache.Enabled, o.Cache.Enabled)
		set(&out.Cache.Path, o.Cache.Path)
	}
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
