package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

const (
	keyPrefixToken       = "aat:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerPersistence stores tokens on local disk with Badger.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ITokenPersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence opens (or creates) a token store at dataPath and starts
// a background value-log GC goroutine.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve absolute path")
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newZapBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger database at %s", absPath)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger token store initialized", "path", absPath)

	return bp, nil
}

func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return errors.Wrap(err, "failed to read schema version")
		}

		var existingVersion string
		if err := item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		}); err != nil {
			return errors.Wrap(err, "failed to read schema version value")
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func tokenKey(clientPublicKey []byte) []byte {
	return []byte(keyPrefixToken + persistence.TokenKey(clientPublicKey))
}

func (b *BadgerPersistence) SaveToken(token *types.AuthToken) error {
	if token == nil {
		return fmt.Errorf("cannot save nil AuthToken")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalToken(token)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(tokenKey(token.ClientPublicKey()), data)
	})
}

func (b *BadgerPersistence) LoadToken(clientPublicKey []byte) (*types.AuthToken, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var token *types.AuthToken
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(tokenKey(clientPublicKey))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := persistence.UnmarshalToken(val)
			if err != nil {
				return err
			}
			token = decoded
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load token")
	}
	return token, nil
}

func (b *BadgerPersistence) ListTokens() ([]*types.AuthToken, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	type keyed struct {
		key   string
		token *types.AuthToken
	}
	var found []keyed

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixToken)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				decoded, err := persistence.UnmarshalToken(val)
				if err != nil {
					return err
				}
				found = append(found, keyed{key: key, token: decoded})
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "failed to decode token at %s", key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tokens")
	}

	sort.Slice(found, func(i, j int) bool { return found[i].key < found[j].key })
	tokens := make([]*types.AuthToken, 0, len(found))
	for _, f := range found {
		tokens = append(tokens, f.token)
	}
	return tokens, nil
}

func (b *BadgerPersistence) DeleteToken(clientPublicKey []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(tokenKey(clientPublicKey))
	})
}

func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close badger database")
	}

	b.logger.Sugar().Info("Badger token store closed")
	return nil
}

func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
