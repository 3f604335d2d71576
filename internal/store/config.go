package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"market-advisor/internal/indicators"
	"market-advisor/internal/recommend"
	"market-advisor/internal/sentiment"
	"market-advisor/internal/types"
)

type Instrument struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=1,lte=10"`
	InitialWait time.Duration `yaml:"initial_wait" validate:"gte=0"`
	MaxWait     time.Duration `yaml:"max_wait" validate:"gtefield=InitialWait"`
}

type Config struct {
	DataSource string `yaml:"data_source" validate:"oneof=YAHOO KITE"`
	FundSource string `yaml:"fund_source" validate:"oneof=MFAPI YAHOO"`
	Exchange   string `yaml:"exchange" validate:"oneof=NSE BSE"`
	Period     string `yaml:"period" validate:"oneof=1mo 3mo 6mo 1y 2y 3y 5y"`

	Universe struct {
		Equities []Instrument `yaml:"equities" validate:"dive"`
		Funds    []Instrument `yaml:"funds" validate:"dive"`
	} `yaml:"universe"`

	Indicators indicators.Config `yaml:"indicators"`
	Sentiment  sentiment.Config  `yaml:"sentiment"`

	Engine struct {
		Weights            map[types.AssetClass]recommend.Weights `yaml:"weights" validate:"required"`
		TechnicalWeights   map[string]float64                     `yaml:"technical_weights"`
		FundamentalWeights map[string]float64                     `yaml:"fundamental_weights"`
		Bands              []recommend.Band                       `yaml:"bands" validate:"required,dive"`
		TopFactors         int                                    `yaml:"top_factors" validate:"gte=1"`
		TargetSpan         map[types.AssetClass]float64           `yaml:"target_span"`
	} `yaml:"engine"`

	News struct {
		Enabled        bool          `yaml:"enabled"`
		Sources        []string      `yaml:"sources" validate:"dive,oneof=newsapi scraper google"`
		MaxArticles    int           `yaml:"max_articles" validate:"gte=1,lte=100"`
		LookbackDays   int           `yaml:"lookback_days" validate:"gte=1,lte=90"`
		CacheTTL       time.Duration `yaml:"cache_ttl" validate:"gte=0"`
		ScraperTimeout time.Duration `yaml:"scraper_timeout" validate:"gt=0"`
		APIKeyEnv      string        `yaml:"api_key_env"`
	} `yaml:"news"`

	Market struct {
		CacheDir          string        `yaml:"cache_dir"`
		CacheTTL          time.Duration `yaml:"cache_ttl" validate:"gte=0"`
		RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=1"`
		Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
		Retry             RetryConfig   `yaml:"retry"`
	} `yaml:"market"`

	Screen struct {
		TopN        int    `yaml:"top_n" validate:"gte=1"`
		Concurrency int    `yaml:"concurrency" validate:"gte=1,lte=32"`
		Cron        string `yaml:"cron"`
	} `yaml:"screen"`

	ReportLog struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir" validate:"required_if=Enabled true"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
	} `yaml:"report_log"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	var c Config
	c.DataSource = "YAHOO"
	c.FundSource = "MFAPI"
	c.Exchange = "NSE"
	c.Period = "1y"

	c.Universe.Equities = []Instrument{
		{Symbol: "RELIANCE.NS", Name: "Reliance Industries"},
		{Symbol: "TCS.NS", Name: "Tata Consultancy Services"},
		{Symbol: "HDFCBANK.NS", Name: "HDFC Bank"},
		{Symbol: "INFY.NS", Name: "Infosys"},
		{Symbol: "ICICIBANK.NS", Name: "ICICI Bank"},
		{Symbol: "HINDUNILVR.NS", Name: "Hindustan Unilever"},
		{Symbol: "ITC.NS", Name: "ITC"},
		{Symbol: "SBIN.NS", Name: "State Bank of India"},
		{Symbol: "BHARTIARTL.NS", Name: "Bharti Airtel"},
		{Symbol: "KOTAKBANK.NS", Name: "Kotak Mahindra Bank"},
		{Symbol: "LT.NS", Name: "Larsen & Toubro"},
		{Symbol: "ASIANPAINT.NS", Name: "Asian Paints"},
		{Symbol: "MARUTI.NS", Name: "Maruti Suzuki"},
		{Symbol: "AXISBANK.NS", Name: "Axis Bank"},
		{Symbol: "WIPRO.NS", Name: "Wipro"},
	}
	c.Universe.Funds = []Instrument{
		{Symbol: "120503", Name: "Axis Bluechip Fund - Direct Growth", Category: "Large Cap"},
		{Symbol: "118989", Name: "HDFC Mid-Cap Opportunities Fund - Direct Growth", Category: "Mid Cap"},
		{Symbol: "120716", Name: "UTI Nifty 50 Index Fund - Direct Growth", Category: "Index"},
		{Symbol: "122639", Name: "Parag Parikh Flexi Cap Fund - Direct Growth", Category: "Flexi Cap"},
		{Symbol: "125497", Name: "SBI Small Cap Fund - Direct Growth", Category: "Small Cap"},
		{Symbol: "119598", Name: "SBI Bluechip Fund - Direct Growth", Category: "Large Cap"},
		{Symbol: "120465", Name: "Axis Midcap Fund - Direct Growth", Category: "Mid Cap"},
		{Symbol: "118834", Name: "Mirae Asset Large Cap Fund - Direct Growth", Category: "Large Cap"},
	}

	c.Indicators = indicators.DefaultConfig()
	c.Sentiment = sentiment.DefaultConfig()

	ec := recommend.DefaultConfig()
	c.Engine.Weights = ec.Profiles
	c.Engine.TechnicalWeights = ec.TechnicalWeights
	c.Engine.FundamentalWeights = ec.FundamentalWeights
	c.Engine.Bands = ec.Bands
	c.Engine.TopFactors = ec.TopFactors
	c.Engine.TargetSpan = ec.TargetSpan

	c.News.Enabled = true
	c.News.Sources = []string{"newsapi", "scraper", "google"}
	c.News.MaxArticles = 20
	c.News.LookbackDays = 30
	c.News.CacheTTL = time.Hour
	c.News.ScraperTimeout = 30 * time.Second
	c.News.APIKeyEnv = "NEWS_API_KEY"

	c.Market.CacheDir = "cache/market"
	c.Market.CacheTTL = 6 * time.Hour
	c.Market.RequestsPerMinute = 60
	c.Market.Timeout = 20 * time.Second
	c.Market.Retry = RetryConfig{MaxAttempts: 3, InitialWait: time.Second, MaxWait: 5 * time.Second}

	c.Screen.TopN = 5
	c.Screen.Concurrency = 4
	c.Screen.Cron = "30 16 * * 1-5"

	c.ReportLog.Dir = "logs/reports"
	c.ReportLog.RetentionDays = 30
	return &c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed '%s' check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	if len(c.Universe.Equities) == 0 && len(c.Universe.Funds) == 0 {
		return errors.New("universe cannot be empty")
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// EngineConfig builds the immutable engine configuration. Horizons are not
// configurable.
func (c *Config) EngineConfig() recommend.Config {
	ec := recommend.DefaultConfig()
	ec.Profiles = c.Engine.Weights
	if len(c.Engine.TechnicalWeights) > 0 {
		ec.TechnicalWeights = c.Engine.TechnicalWeights
	}
	if len(c.Engine.FundamentalWeights) > 0 {
		ec.FundamentalWeights = c.Engine.FundamentalWeights
	}
	ec.Bands = c.Engine.Bands
	ec.TopFactors = c.Engine.TopFactors
	for class, span := range c.Engine.TargetSpan {
		ec.TargetSpan[class] = span
	}
	return ec
}

// LookupInstrument finds a configured instrument by symbol.
func (c *Config) LookupInstrument(symbol string) (Instrument, types.AssetClass, bool) {
	for _, in := range c.Universe.Equities {
		if in.Symbol == symbol {
			return in, types.AssetEquity, true
		}
	}
	for _, in := range c.Universe.Funds {
		if in.Symbol == symbol {
			return in, types.AssetFund, true
		}
	}
	return Instrument{}, "", false
}

// UniverseFor returns the configured instruments for an asset class.
func (c *Config) UniverseFor(class types.AssetClass) []Instrument {
	if class == types.AssetFund {
		return c.Universe.Funds
	}
	return c.Universe.Equities
}

// LoadConfig reads path on top of Default and validates the result.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return c, nil
}
