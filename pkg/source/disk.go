// Package source reads accounts and balances from a diskv tree on disk and
// feeds them into a store.Store.
package source

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/acctview/pkg/account"
)

var (
	// ErrNoPersistence is returned by Load when no base path is configured.
	ErrNoPersistence = errors.New("source: persistence base path unknown")
	// ErrMissingID is returned when storing a record without an id.
	ErrMissingID = errors.New("source: record id required")
)

// Collection names one of the two record kinds kept on disk.
type Collection string

const (
	Accounts Collection = "accounts"
	Balances Collection = "balances"
)

// Config is the subset of the application config the source needs.
type Config interface {
	BasePath() string
}

// Option customises a Disk.
type Option func(*Disk)

// WithLogger sets the logger used for unreadable records and watcher errors.
func WithLogger(l *slog.Logger) Option {
	return func(d *Disk) {
		if l != nil {
			d.log = l
		}
	}
}

// Disk is the on-disk record source.
type Disk struct {
	d        *diskv.Diskv
	basePath string
	log      *slog.Logger
}

// Load opens the tree rooted at cfg.BasePath().
func Load(cfg Config, opts ...Option) (*Disk, error) {
	if cfg == nil || cfg.BasePath() == "" {
		return nil, ErrNoPersistence
	}
	basePath := cfg.BasePath()
	d := &Disk{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			// Other processes write the same tree, so reads are never cached.
			CacheSizeMax: 0,
		}),
		basePath: basePath,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// BasePath is the root of the tree.
func (d *Disk) BasePath() string {
	return d.basePath
}

// Accounts lists every stored account sorted by id.
func (d *Disk) Accounts(ctx context.Context) ([]account.Account, error) {
	all := make([]account.Account, 0)
	err := d.each(ctx, Accounts, func(key string, data []byte) {
		var a account.Account
		if err := json.Unmarshal(data, &a); err != nil {
			d.log.Warn("unreadable account", "key", key, "err", err)
			return
		}
		all = append(all, a)
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, err
}

// Balances lists every stored balance sorted by id.
func (d *Disk) Balances(ctx context.Context) ([]account.Balance, error) {
	all := make([]account.Balance, 0)
	err := d.each(ctx, Balances, func(key string, data []byte) {
		var b account.Balance
		if err := json.Unmarshal(data, &b); err != nil {
			d.log.Warn("unreadable balance", "key", key, "err", err)
			return
		}
		all = append(all, b)
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, err
}

func (d *Disk) each(ctx context.Context, c Collection, fn func(key string, data []byte)) error {
	for key := range d.d.Keys(ctx.Done()) {
		if pk := keyToPathTransform(key); len(pk.Path) == 0 || pk.Path[0] != string(c) {
			continue
		}
		data, err := d.d.Read(key)
		if err != nil {
			// Erased between listing and reading.
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			d.log.Warn("read failed", "key", key, "err", err)
			continue
		}
		fn(key, data)
	}
	return ctx.Err()
}

// StoreAccount writes or replaces an account.
func (d *Disk) StoreAccount(a account.Account) error {
	return d.write(Accounts, a.ID, a)
}

// StoreBalance writes or replaces a balance.
func (d *Disk) StoreBalance(b account.Balance) error {
	return d.write(Balances, b.ID, b)
}

// DeleteAccount erases the account with id.
func (d *Disk) DeleteAccount(id string) error {
	return d.erase(Accounts, id)
}

// DeleteBalance erases the balance with id.
func (d *Disk) DeleteBalance(id string) error {
	return d.erase(Balances, id)
}

// Reset erases every record.
func (d *Disk) Reset() error {
	if err := d.d.EraseAll(); err != nil {
		return fmt.Errorf("source: reset: %w", err)
	}
	return nil
}

func (d *Disk) write(c Collection, id string, v interface{}) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("source: encode %s %s: %w", c, id, err)
	}
	if err := d.d.Write(toKey(c, id), data); err != nil {
		return fmt.Errorf("source: write %s %s: %w", c, id, err)
	}
	return nil
}

func (d *Disk) erase(c Collection, id string) error {
	if err := d.d.Erase(toKey(c, id)); err != nil {
		return fmt.Errorf("source: erase %s %s: %w", c, id, err)
	}
	return nil
}

// toKey makes `collection-hexid`. Ids are hex encoded so they never contain
// the separator.
func toKey(c Collection, id string) string {
	return fmt.Sprintf("%s-%s", c, hex.EncodeToString([]byte(id)))
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}
