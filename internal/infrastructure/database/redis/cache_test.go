package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/medimatch/medimatch/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = &Client{rdb: db, log: logging.NewNopLogger()}
	s.cache = NewCache(s.client, nil, WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedDrug struct {
	Name    string  `json:"name"`
	LogP    float64 `json:"log_p"`
	ChEMBL  string  `json:"chembl_id"`
	Sources string  `json:"sources"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := cachedDrug{Name: "Aspirin", LogP: 1.2, ChEMBL: "CHEMBL25"}
	data, _ := json.Marshal(val)

	s.mock.ExpectGet("test:drug:aspirin").SetVal(string(data))

	var dest cachedDrug
	err := s.cache.Get(context.Background(), "drug:aspirin", &dest)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:drug:missing").RedisNil()

	var dest cachedDrug
	err := s.cache.Get(context.Background(), "drug:missing", &dest)

	assert.Equal(s.T(), ErrCacheMiss, err)
	assert.True(s.T(), pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestGet_NullSentinel() {
	s.mock.ExpectGet("test:drug:absent").SetVal(nullSentinel)

	var dest cachedDrug
	err := s.cache.Get(context.Background(), "drug:absent", &dest)

	assert.Equal(s.T(), ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGet_CorruptPayload() {
	s.mock.ExpectGet("test:drug:bad").SetVal("{not json")

	var dest cachedDrug
	err := s.cache.Get(context.Background(), "drug:bad", &dest)

	assert.Equal(s.T(), ErrSerializationFailed, err)
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:drug:a", "test:drug:b").SetVal(2)

	err := s.cache.Delete(context.Background(), "drug:a", "drug:b")
	assert.NoError(s.T(), err)
}

func (s *CacheTestSuite) TestDelete_NoKeys() {
	err := s.cache.Delete(context.Background())
	assert.NoError(s.T(), err)
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:drug:aspirin").SetVal(1)

	ok, err := s.cache.Exists(context.Background(), "drug:aspirin")
	assert.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	val := cachedDrug{Name: "Ibuprofen"}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:drug:ibuprofen").SetVal(string(data))

	var dest cachedDrug
	err := s.cache.GetOrSet(context.Background(), "drug:ibuprofen", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			s.T().Fatal("loader must not run on a cache hit")
			return nil, nil
		})

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_MissRunsLoaderAndWritesBack() {
	val := cachedDrug{Name: "Metformin", ChEMBL: "CHEMBL1431"}
	data, _ := json.Marshal(val)

	s.mock.ExpectGet("test:drug:metformin").RedisNil()
	// Set TTLs carry jitter, so only the key and payload are matched.
	s.mock.CustomMatch(func(expected, actual []interface{}) error {
		return nil
	}).ExpectSet("test:drug:metformin", data, time.Minute).SetVal("OK")

	var dest cachedDrug
	err := s.cache.GetOrSet(context.Background(), "drug:metformin", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			return val, nil
		})

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGetOrSet_NotFoundCachesNull() {
	s.mock.ExpectGet("test:drug:ghost").RedisNil()
	s.mock.ExpectSet("test:drug:ghost", nullSentinel, nullCacheTTL).SetVal("OK")

	var dest cachedDrug
	err := s.cache.GetOrSet(context.Background(), "drug:ghost", &dest, time.Minute,
		func(ctx context.Context) (interface{}, error) {
			return nil, pkgerrors.New(pkgerrors.ErrCodeDrugNotFound, "no such drug")
		})

	assert.Error(s.T(), err)
	assert.True(s.T(), pkgerrors.IsNotFound(err))
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:drug:*", 100).SetVal([]string{"test:drug:a", "test:drug:b"}, 0)
	s.mock.ExpectDel("test:drug:a", "test:drug:b").SetVal(2)

	n, err := s.cache.DeleteByPrefix(context.Background(), "drug:")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), n)
}

func (s *CacheTestSuite) TestTTL() {
	s.mock.ExpectTTL("test:drug:aspirin").SetVal(5 * time.Minute)

	ttl, err := s.cache.TTL(context.Background(), "drug:aspirin")
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), 5*time.Minute, ttl)
}

func (s *CacheTestSuite) TestClosedClient() {
	require := s.Require()
	require.NoError(s.client.Close())

	var dest cachedDrug
	assert.Equal(s.T(), ErrClientClosed, s.cache.Get(context.Background(), "k", &dest))
	assert.Equal(s.T(), ErrClientClosed, s.cache.Set(context.Background(), "k", dest, time.Minute))
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestJitterTTL_StaysWithinTenPercent(t *testing.T) {
	base := 10 * time.Minute
	for i := 0; i < 200; i++ {
		got := jitterTTL(base)
		assert.GreaterOrEqual(t, got, base-base/10)
		assert.LessOrEqual(t, got, base+base/10)
	}
}

func TestJitterTTL_NonPositivePassesThrough(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitterTTL(0))
	assert.Equal(t, time.Duration(-1), jitterTTL(-1))
}
