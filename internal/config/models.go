package config

// KeywordsConfig configures the keyword scorer
type KeywordsConfig struct {
	SpamThreshold     int
	HighRiskThreshold int
	SubjectWeight     int
	LeadWeight        int
	BodyWeight        int
	LeadChars         int
	File              string
	HighlightOpen     string
	HighlightClose    string
}

// LookalikeConfig configures the lookalike detector
type LookalikeConfig struct {
	MaxDistance int
	Index       string
	CountExact  bool
	Combosquat  bool
}

// FusionConfig configures vote fusion
type FusionConfig struct {
	SpamVotes          int
	ScoreDenominator   int
	ReputationVote     bool
	ReputationOverride bool
	ParallelDomains    int
}

// TrustConfig configures the trust store artifacts
type TrustConfig struct {
	Threshold      int
	DomainsFile    string
	SafeHostsFile  string
	SafeHostnames  []string
	FromReputation bool
}

// ReputationConfig selects and locates the reputation table
type ReputationConfig struct {
	Store       string
	CSVPath     string
	SQLitePath  string
	MySQLDSN    string
	PostgresURL string
}

// ServerConfig configures the request-handling boundary
type ServerConfig struct {
	FilterType     string
	ListenAddress  string
	MaxRequestSize int64
	BlockSpam      bool
	ModifySubject  bool
	SubjectPrefix  string
	StatusHeader   string
	ScoreHeader    string
	VotesHeader    string
	PostfixAddress string
	PostfixPort    int
}

// GetKeywords returns the keyword scorer configuration
func (c *Config) GetKeywords() KeywordsConfig {
	return KeywordsConfig{
		SpamThreshold:     c.GetInt("keywords.spam_threshold"),
		HighRiskThreshold: c.GetInt("keywords.high_risk_threshold"),
		SubjectWeight:     c.GetInt("keywords.subject_weight"),
		LeadWeight:        c.GetInt("keywords.lead_weight"),
		BodyWeight:        c.GetInt("keywords.body_weight"),
		LeadChars:         c.GetInt("keywords.lead_chars"),
		File:              c.GetString("keywords.file"),
		HighlightOpen:     c.GetString("keywords.highlight_open"),
		HighlightClose:    c.GetString("keywords.highlight_close"),
	}
}

// GetLookalike returns the lookalike detector configuration
func (c *Config) GetLookalike() LookalikeConfig {
	return LookalikeConfig{
		MaxDistance: c.GetInt("lookalike.max_distance"),
		Index:       c.GetString("lookalike.index"),
		CountExact:  c.GetBool("lookalike.count_exact"),
		Combosquat:  c.GetBool("lookalike.combosquat"),
	}
}

// GetFusion returns the fusion configuration
func (c *Config) GetFusion() FusionConfig {
	return FusionConfig{
		SpamVotes:          c.GetInt("fusion.spam_votes"),
		ScoreDenominator:   c.GetInt("fusion.score_denominator"),
		ReputationVote:     c.GetBool("fusion.reputation_vote"),
		ReputationOverride: c.GetBool("fusion.reputation_override"),
		ParallelDomains:    c.GetInt("fusion.parallel_domains"),
	}
}

// GetTrust returns the trust store configuration
func (c *Config) GetTrust() TrustConfig {
	return TrustConfig{
		Threshold:      c.GetInt("trust.threshold"),
		DomainsFile:    c.GetString("trust.domains_file"),
		SafeHostsFile:  c.GetString("trust.safe_hosts_file"),
		SafeHostnames:  c.GetStringSlice("trust.safe_hostnames"),
		FromReputation: c.GetBool("trust.from_reputation"),
	}
}

// GetReputation returns the reputation table configuration
func (c *Config) GetReputation() ReputationConfig {
	return ReputationConfig{
		Store:       c.GetString("reputation.store"),
		CSVPath:     c.GetString("reputation.csv_path"),
		SQLitePath:  c.GetString("reputation.sqlite_path"),
		MySQLDSN:    c.GetString("reputation.mysql_dsn"),
		PostgresURL: c.GetString("reputation.postgres_url"),
	}
}

// GetServer returns the server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:     c.GetString("server.filter_type"),
		ListenAddress:  c.GetString("server.listen_address"),
		MaxRequestSize: c.v.GetInt64("server.max_request_size"),
		BlockSpam:      c.GetBool("server.block_spam"),
		ModifySubject:  c.GetBool("server.modify_subject"),
		SubjectPrefix:  c.GetString("server.subject_prefix"),
		StatusHeader:   c.GetString("server.headers.status"),
		ScoreHeader:    c.GetString("server.headers.score"),
		VotesHeader:    c.GetString("server.headers.votes"),
		PostfixAddress: c.GetString("server.postfix.address"),
		PostfixPort:    c.GetInt("server.postfix.port"),
	}
}
