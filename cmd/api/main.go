package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/IrSokolova/Letterboxd/internal/data"
	"github.com/IrSokolova/Letterboxd/internal/imdb"
	"github.com/IrSokolova/Letterboxd/internal/jsonlog"
	"github.com/IrSokolova/Letterboxd/internal/mailer"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Application version number
const version = "1.0.0"

// config struct holds all the configuration settings for our application.
type config struct {

	// the network port that we want the server to listen on
	port int

	// current operating environment for the application (development, test, production)
	env string

	// db struct field holds the configuration settings for our database connection pool.
	db struct {
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
	}

	// limiter struct containing fields for the requests per second and burst
	// values, and a boolean field which we can use to enable/disable rate limiting
	// altogether
	limiter struct {
		rps     float64
		burst   int
		enabled bool
	}

	// smtp struct holds the settings for the welcome-mail sender
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}

	// imdb struct holds the settings for the external title-metadata service
	imdb struct {
		baseURL string
	}
}

// metadataClient is the part of the title-metadata service the handlers use.
type metadataClient interface {
	Lookup(ctx context.Context, id string) (*data.Movie, error)
	RandomMovieID(ctx context.Context) (string, error)
}

// mailSender is the part of the mailer the handlers use.
type mailSender interface {
	Send(recipient, templateFile string, data interface{}) error
}

// application struct holds the dependencies for our HTTP handlers, helpers, and middleware.
type application struct {
	config   config
	logger   *jsonlog.Logger
	models   data.Models
	metadata metadataClient
	mailer   mailSender
	// sync.WaitGroup is used to coordinate the graceful shutdown and our background goroutines
	wg sync.WaitGroup
}

func main() {

	// Load a .env file when one is present. Missing files are fine; the
	// process environment wins either way.
	_ = godotenv.Load()

	var cfg config

	flag.IntVar(&cfg.port, "port", 4000, "API server port")
	flag.StringVar(&cfg.env, "env", "development", "Environment (development|test|production)")
	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("MOVIES_DB_DSN"), "PostgreSQL DSN (overrides the DB_* variables)")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	flag.StringVar(&cfg.db.maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")
	flag.Float64Var(&cfg.limiter.rps, "limiter-rps", 2, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 4, "Rate limiter maximum burst")
	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")
	flag.StringVar(&cfg.smtp.host, "smtp-host", "127.0.0.1", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 1025, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "Letterboxd <no-reply@letterboxd.example>", "SMTP sender")
	flag.StringVar(&cfg.imdb.baseURL, "imdb-base-url", "https://api.imdbapi.dev", "Title metadata service base URL")

	flag.Parse()

	// Without an explicit DSN, assemble one from the discrete connection
	// variables. The test environment reads its own TEST_DB_* set so test
	// runs can't touch the main database.
	if cfg.db.dsn == "" {
		cfg.db.dsn = dsnFromEnv(cfg.env)
	}

	// Development runs get the DEBUG entries too, notably the random-discovery
	// probe misses.
	minLevel := jsonlog.LevelInfo
	if cfg.env == "development" {
		minLevel = jsonlog.LevelDebug
	}
	logger := jsonlog.New(os.Stdout, minLevel)

	db, err := openDB(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()

	logger.PrintInfo("database connection pool established", nil)

	app := &application{
		config:   cfg,
		logger:   logger,
		models:   data.NewModels(db),
		metadata: imdb.New(imdb.WithBaseURL(cfg.imdb.baseURL), imdb.WithLogger(logger)),
		mailer:   mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
	}

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

// dsnFromEnv assembles a lib/pq DSN from the discrete DB_* environment
// variables, or the TEST_DB_* set when running in the test environment.
func dsnFromEnv(env string) string {
	prefix := "DB_"
	if env == "test" {
		prefix = "TEST_DB_"
	}

	host := os.Getenv(prefix + "HOST")
	port := os.Getenv(prefix + "PORT")
	user := os.Getenv(prefix + "USER")
	password := os.Getenv(prefix + "PASSWORD")
	name := os.Getenv(prefix + "NAME")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(user), url.QueryEscape(password), host, port, name)
}

// openDB returns a sql.DB connection pool
func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	// Note that passing a value less than or equal to 0 means there is no limit.
	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)

	duration, err := time.ParseDuration(cfg.db.maxIdleTime)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Establish a new connection to the database. If a connection couldn't be
	// established within the 5 second deadline this returns an error.
	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}
