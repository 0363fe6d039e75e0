package database

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	c "github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/config"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/utils"
)

var (
	GameIdEmptyError = errors.New("game_id is empty")
	ErrGameNotFound  = errors.New("game not found in archive")
)

// DBStore archives finished games in MongoDB with a read-through LRU.
type DBStore struct {
	client           *mongo.Client
	games            *mongo.Collection
	cache            *expirable.LRU[string, *GameRecord]
	operationTimeout time.Duration
}

type DBCloseCallback struct {
	store *DBStore
}

func (dc *DBCloseCallback) Invoke(ctx context.Context) error {
	logger.InfoF("Closing database connection")
	ctx, cancel := context.WithTimeout(ctx, dc.store.operationTimeout)
	defer cancel()
	return dc.store.client.Disconnect(ctx)
}

func (ds *DBStore) CloseCallback() *DBCloseCallback {
	return &DBCloseCallback{store: ds}
}

func buildURI(config c.Database) string {
	encodedUser := url.QueryEscape(config.Username)
	encodedPass := url.QueryEscape(config.Password)
	if encodedUser == "" {
		return fmt.Sprintf("mongodb://%s:%d/", config.Host, config.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=admin",
		encodedUser, encodedPass,
		config.Host,
		config.Port,
	)
}

func newCache(config c.Database) *expirable.LRU[string, *GameRecord] {
	size := config.CacheSize
	if size <= 0 {
		size = 256
	}
	return expirable.NewLRU[string, *GameRecord](size, nil, utils.ParseStringTimeOr(config.CacheTTL, time.Hour))
}

// ConnectDatabase dials MongoDB, pings it and ensures the game_id index.
func ConnectDatabase(config c.Database, appName string) (*DBStore, error) {
	logger.DebugF("Connecting to database...")

	clientOptions := options.Client().ApplyURI(buildURI(config)).SetAppName(appName)
	clientOptions.SetMinPoolSize(config.MinPoolSize)
	clientOptions.SetMaxPoolSize(config.MaxPoolSize)
	clientOptions.SetMaxConnIdleTime(utils.ParseStringTime(config.ConnectIdleTimeout))
	clientOptions.SetConnectTimeout(utils.ParseStringTime(config.ConnectTimeout))
	clientOptions.SetSocketTimeout(utils.ParseStringTime(config.SocketTimeout))
	clientOptions.SetHeartbeatInterval(utils.ParseStringTime(config.Heartbeat))
	if config.UseTLS {
		clientOptions.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	clientOptions.SetPoolMonitor(&event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				logger.DebugF("Database connection created: %s", evt.Address)
			case event.ConnectionClosed:
				logger.DebugF("Database connection closed: %s (%s)", evt.Address, evt.Reason)
			}
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error occured while connecting to database: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error occured while pinging database: %w", err)
	}

	games := client.Database(config.Database).Collection(GameCollectionName)
	_, err = games.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "game_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("games_game_id_unique"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error occured while creating database indexes: %w", err)
	}

	return &DBStore{
		client:           client,
		games:            games,
		cache:            newCache(config),
		operationTimeout: utils.ParseStringTimeOr(config.OperationTimeout, 5*time.Second),
	}, nil
}

func handleErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("unique key conflicts: %w", err)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %w", ErrGameNotFound, err)
	}
	return fmt.Errorf("database operation failed: %w", err)
}

// SaveGame upserts record by game id.
func (ds *DBStore) SaveGame(ctx context.Context, record *GameRecord) error {
	if record.GameID == "" {
		return GameIdEmptyError
	}
	ctx, cancel := context.WithTimeout(ctx, ds.operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "game_id", Value: record.GameID}}
	result, err := ds.games.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return handleErr(err)
	}
	ds.cache.Add(record.GameID, record)

	logger.InfoF("Game archived: game_id=%s, matched=%d, modified=%d, upserted=%v",
		record.GameID,
		result.MatchedCount,
		result.ModifiedCount,
		result.UpsertedID != nil,
	)
	return nil
}

// GetGame returns the archived record of gameID.
func (ds *DBStore) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	if gameID == "" {
		return nil, GameIdEmptyError
	}
	if record, ok := ds.cache.Get(gameID); ok {
		return record, nil
	}
	ctx, cancel := context.WithTimeout(ctx, ds.operationTimeout)
	defer cancel()

	var record GameRecord
	startTime := time.Now()
	err := ds.games.FindOne(ctx, bson.D{{Key: "game_id", Value: gameID}}).Decode(&record)
	logger.DebugF("game query cost: %v", time.Since(startTime))
	if err != nil {
		return nil, handleErr(err)
	}
	ds.cache.Add(gameID, &record)
	return &record, nil
}
