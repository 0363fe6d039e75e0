package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/utils"
)

const DefaultPath = "config.json"

var ErrConfigCreated = errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")

type HTTP struct {
	Port              int    `json:"port" env:"TRIVIA_HTTP_PORT"`
	BaseURL           string `json:"base_url" env:"TRIVIA_HTTP_BASE_URL"`
	ReadHeaderTimeout string `json:"read_header_timeout" env:"TRIVIA_HTTP_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   string `json:"shutdown_timeout" env:"TRIVIA_HTTP_SHUTDOWN_TIMEOUT"`
}

type Engine struct {
	HostPort       string `json:"host_port" env:"TRIVIA_ENGINE_HOST_PORT"`
	Namespace      string `json:"namespace" env:"TRIVIA_ENGINE_NAMESPACE"`
	TaskQueue      string `json:"task_queue" env:"TRIVIA_ENGINE_TASK_QUEUE"`
	GameWorkflow   string `json:"game_workflow" env:"TRIVIA_ENGINE_GAME_WORKFLOW"`
	PlayerWorkflow string `json:"player_workflow" env:"TRIVIA_ENGINE_PLAYER_WORKFLOW"`
	StartSignal    string `json:"start_signal" env:"TRIVIA_ENGINE_START_SIGNAL"`
	AnswerSignal   string `json:"answer_signal" env:"TRIVIA_ENGINE_ANSWER_SIGNAL"`
	ProgressQuery  string `json:"progress_query" env:"TRIVIA_ENGINE_PROGRESS_QUERY"`
	PlayersQuery   string `json:"players_query" env:"TRIVIA_ENGINE_PLAYERS_QUERY"`
	QuestionsQuery string `json:"questions_query" env:"TRIVIA_ENGINE_QUESTIONS_QUERY"`
	DetailsQuery   string `json:"details_query" env:"TRIVIA_ENGINE_DETAILS_QUERY"`
	RPCTimeout     string `json:"rpc_timeout" env:"TRIVIA_ENGINE_RPC_TIMEOUT"`
	ExecuteTimeout string `json:"execute_timeout" env:"TRIVIA_ENGINE_EXECUTE_TIMEOUT"`
}

type Poll struct {
	Timeout         string `json:"timeout" env:"TRIVIA_POLL_TIMEOUT"`
	InitialInterval string `json:"initial_interval" env:"TRIVIA_POLL_INITIAL_INTERVAL"`
	MaxInterval     string `json:"max_interval" env:"TRIVIA_POLL_MAX_INTERVAL"`
}

type Game struct {
	IDDigits          int    `json:"id_digits" env:"TRIVIA_GAME_ID_DIGITS"`
	IDAttempts        int    `json:"id_attempts" env:"TRIVIA_GAME_ID_ATTEMPTS"`
	Category          string `json:"category" env:"TRIVIA_GAME_CATEGORY"`
	NumberOfQuestions int    `json:"number_of_questions" env:"TRIVIA_GAME_NUMBER_OF_QUESTIONS"`
	NumberOfPlayers   int    `json:"number_of_players" env:"TRIVIA_GAME_NUMBER_OF_PLAYERS"`
	MaxPlayers        int    `json:"max_players" env:"TRIVIA_GAME_MAX_PLAYERS"`
	MaxQuestions      int    `json:"max_questions" env:"TRIVIA_GAME_MAX_QUESTIONS"`
	AnswerTimeLimit   int    `json:"answer_time_limit" env:"TRIVIA_GAME_ANSWER_TIME_LIMIT"`
	StartTimeLimit    int    `json:"start_time_limit" env:"TRIVIA_GAME_START_TIME_LIMIT"`
	ResultTimeLimit   int    `json:"result_time_limit" env:"TRIVIA_GAME_RESULT_TIME_LIMIT"`
}

type Sweep struct {
	Grace string `json:"grace" env:"TRIVIA_SWEEP_GRACE"`
}

type Artifacts struct {
	Dir string `json:"dir" env:"TRIVIA_ARTIFACTS_DIR"`
}

type Log struct {
	Dir           string `json:"dir" env:"TRIVIA_LOG_DIR"`
	RetentionDays int    `json:"retention_days" env:"TRIVIA_LOG_RETENTION_DAYS"`
}

type Database struct {
	Enabled            bool   `json:"enabled" env:"TRIVIA_DATABASE_ENABLED"`
	Host               string `json:"host" env:"TRIVIA_DATABASE_HOST"`
	Port               uint64 `json:"port" env:"TRIVIA_DATABASE_PORT"`
	Username           string `json:"username" env:"TRIVIA_DATABASE_USERNAME"`
	Password           string `json:"password" env:"TRIVIA_DATABASE_PASSWORD"`
	Database           string `json:"database" env:"TRIVIA_DATABASE_NAME"`
	UseTLS             bool   `json:"use_tls" env:"TRIVIA_DATABASE_USE_TLS"`
	ConnectTimeout     string `json:"connect_timeout"`
	SocketTimeout      string `json:"socket_timeout"`
	ConnectIdleTimeout string `json:"connect_idle_timeout"`
	OperationTimeout   string `json:"operation_timeout"`
	Heartbeat          string `json:"heartbeat"`
	MinPoolSize        uint64 `json:"min_pool_size"`
	MaxPoolSize        uint64 `json:"max_pool_size"`
	CacheSize          int    `json:"cache_size"`
	CacheTTL           string `json:"cache_ttl"`
}

type Config struct {
	HTTP      HTTP      `json:"http"`
	Engine    Engine    `json:"engine"`
	Poll      Poll      `json:"poll"`
	Game      Game      `json:"game"`
	Sweep     Sweep     `json:"sweep"`
	Artifacts Artifacts `json:"artifacts"`
	Log       Log       `json:"log"`
	Database  Database  `json:"database"`
	DebugMode bool      `json:"debug_mode" env:"TRIVIA_DEBUG_MODE"`
	AppName   string    `json:"app_name" env:"TRIVIA_APP_NAME"`
}

var (
	mu          sync.Mutex
	config      Config
	initialized = false
)

// Default returns the configuration written when no config file exists.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Port:              5000,
			BaseURL:           "http://localhost:5000",
			ReadHeaderTimeout: "5s",
			ShutdownTimeout:   "5s",
		},
		Engine: Engine{
			HostPort:       "localhost:7233",
			Namespace:      "default",
			TaskQueue:      "trivia-game",
			GameWorkflow:   "TriviaGameWorkflow",
			PlayerWorkflow: "AddPlayerWorkflow",
			StartSignal:    "start-game-signal",
			AnswerSignal:   "answer-signal",
			ProgressQuery:  "getProgress",
			PlayersQuery:   "getPlayers",
			QuestionsQuery: "getQuestions",
			DetailsQuery:   "getDetails",
			RPCTimeout:     "5s",
			ExecuteTimeout: "30s",
		},
		Poll: Poll{
			Timeout:         "15s",
			InitialInterval: "100ms",
			MaxInterval:     "1s",
		},
		Game: Game{
			IDDigits:          6,
			IDAttempts:        8,
			Category:          "general",
			NumberOfQuestions: 5,
			NumberOfPlayers:   2,
			MaxPlayers:        20,
			MaxQuestions:      50,
			AnswerTimeLimit:   20,
			StartTimeLimit:    300,
			ResultTimeLimit:   10,
		},
		Sweep:     Sweep{Grace: "30s"},
		Artifacts: Artifacts{Dir: "qr"},
		Log:       Log{Dir: "logs", RetentionDays: 30},
		Database: Database{
			Host:               "localhost",
			Port:               27017,
			Database:           "trivia",
			ConnectTimeout:     "10s",
			SocketTimeout:      "10s",
			ConnectIdleTimeout: "5m",
			OperationTimeout:   "5s",
			Heartbeat:          "10s",
			MinPoolSize:        1,
			MaxPoolSize:        16,
			CacheSize:          256,
			CacheTTL:           "1h",
		},
		AppName: "trivia-coordinator",
	}
}

// ReadConfig reads config.json from the working directory.
func ReadConfig() (Config, error) {
	return ReadConfigFrom(DefaultPath)
}

// ReadConfigFrom reads the JSON file at path on top of the defaults and
// applies TRIVIA_* environment overrides. A missing file is created with the
// defaults and reported as ErrConfigCreated.
func ReadConfigFrom(path string) (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	cfg := Default()
	bytes, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read configuration file: %w", err)
		}
		data, _ := json.MarshalIndent(cfg, "", "\t")
		if werr := os.WriteFile(path, data, 0644); werr != nil {
			return cfg, fmt.Errorf("create configuration file: %w", werr)
		}
		return cfg, ErrConfigCreated
	}

	if err := json.Unmarshal(bytes, &cfg); err != nil {
		return cfg, fmt.Errorf("the configuration file does not contain valid JSON: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	config = cfg
	initialized = true
	return cfg, nil
}

func GetConfig() (Config, error) {
	mu.Lock()
	if initialized {
		defer mu.Unlock()
		return config, nil
	}
	mu.Unlock()
	return ReadConfig()
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.Engine.HostPort == "" {
		errs = append(errs, errors.New("engine.host_port is required"))
	}
	if c.Engine.GameWorkflow == "" || c.Engine.PlayerWorkflow == "" {
		errs = append(errs, errors.New("engine workflow names are required"))
	}
	if c.Game.IDDigits < 1 || c.Game.IDDigits > 12 {
		errs = append(errs, fmt.Errorf("game.id_digits out of range: %d", c.Game.IDDigits))
	}
	if c.Game.IDAttempts < 1 {
		errs = append(errs, fmt.Errorf("game.id_attempts must be positive: %d", c.Game.IDAttempts))
	}
	if c.Database.Enabled && c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required when the database is enabled"))
	}
	return errors.Join(errs...)
}

func (e Engine) RPCTimeoutDuration() time.Duration {
	return utils.ParseStringTimeOr(e.RPCTimeout, 5*time.Second)
}

func (e Engine) ExecuteTimeoutDuration() time.Duration {
	return utils.ParseStringTimeOr(e.ExecuteTimeout, 30*time.Second)
}

func (p Poll) TimeoutDuration() time.Duration {
	return utils.ParseStringTimeOr(p.Timeout, 15*time.Second)
}

func (p Poll) InitialIntervalDuration() time.Duration {
	return utils.ParseStringTimeOr(p.InitialInterval, 100*time.Millisecond)
}

func (p Poll) MaxIntervalDuration() time.Duration {
	return utils.ParseStringTimeOr(p.MaxInterval, time.Second)
}

func (s Sweep) GraceDuration() time.Duration {
	return utils.ParseStringTime(s.Grace)
}

func (h HTTP) ReadHeaderTimeoutDuration() time.Duration {
	return utils.ParseStringTimeOr(h.ReadHeaderTimeout, 5*time.Second)
}

func (h HTTP) ShutdownTimeoutDuration() time.Duration {
	return utils.ParseStringTimeOr(h.ShutdownTimeout, 5*time.Second)
}
