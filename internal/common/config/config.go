package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Tables        TablesConfig        `mapstructure:"tables"`
	Scheduling    SchedulingConfig    `mapstructure:"scheduling"`
	Directory     DirectoryConfig     `mapstructure:"directory"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SES    struct {
		FromEmail    string `mapstructure:"from_email"`
		ManagerEmail string `mapstructure:"manager_email"`
	} `mapstructure:"ses"`
	SNS struct {
		OpsTopicARN string `mapstructure:"ops_topic_arn"`
	} `mapstructure:"sns"`
}

// TablesConfig names the key-value store tables. Table names are
// environment-prefixed by deployment tooling, not derived here.
type TablesConfig struct {
	Appointments     string `mapstructure:"appointments"`
	AppointmentTypes string `mapstructure:"appointment_types"`
	Calendars        string `mapstructure:"calendars"`
	CalendarBlocks   string `mapstructure:"calendar_blocks"`
}

type SchedulingConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	UserID        string `mapstructure:"user_id"`
	APIKey        string `mapstructure:"api_key"`
	WebhookTarget string `mapstructure:"webhook_target"`
	Timeout       int    `mapstructure:"timeout"`       // seconds
	TypeCacheTTL  int    `mapstructure:"type_cache_ttl"` // seconds
}

type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NotificationsConfig struct {
	GraceWindowHours  int `mapstructure:"grace_window_hours"`
	ReminderLookahead int `mapstructure:"reminder_lookahead_days"`
	RetentionDays     int `mapstructure:"retention_days"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
