package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	c "github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/config"
)

func TestBuildURI(t *testing.T) {
	cfg := c.Database{Host: "db", Port: 27017}
	require.Equal(t, "mongodb://db:27017/", buildURI(cfg))

	cfg.Username = "quiz master"
	cfg.Password = "p@ss"
	require.Equal(t, "mongodb://quiz+master:p%40ss@db:27017/?authSource=admin", buildURI(cfg))
}

func TestHandleErr(t *testing.T) {
	require.ErrorIs(t, handleErr(mongo.ErrNoDocuments), ErrGameNotFound)
	err := handleErr(errors.New("socket closed"))
	require.ErrorContains(t, err, "database operation failed")
	require.NotErrorIs(t, err, ErrGameNotFound)
}

func TestGetGameServesCache(t *testing.T) {
	ds := &DBStore{cache: newCache(c.Database{CacheSize: 4, CacheTTL: "1m"})}
	ds.cache.Add("123456", &GameRecord{GameID: "123456", Players: map[string]int{"alice": 3}})

	record, err := ds.GetGame(context.Background(), "123456")
	require.NoError(t, err)
	require.Equal(t, 3, record.Players["alice"])

	_, err = ds.GetGame(context.Background(), "")
	require.ErrorIs(t, err, GameIdEmptyError)
	require.ErrorIs(t, ds.SaveGame(context.Background(), &GameRecord{}), GameIdEmptyError)
}
