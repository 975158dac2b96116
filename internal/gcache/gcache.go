// Package gcache persists compiled grammars so that later runs skip the
// construction cost.
//
// A cache file is a short header followed by a zstd stream holding the
// msgpack encoding of the key and the grammars. Files whose header or key
// does not match are treated as absent and rebuilt.
package gcache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/MrWong99/spokenform/internal/pipeline"
)

// ErrIncompatible is returned by [Cache.Load] when a cache file was written
// by another format version or for another key.
var ErrIncompatible = errors.New("gcache: incompatible cache file")

const formatVersion = 1

var magic = []byte("SPKG")

// Key identifies one compiled grammar configuration.
type Key struct {
	Language      string `msgpack:"language"`
	Deterministic bool   `msgpack:"deterministic"`
	InputCase     string `msgpack:"input_case"`

	// Whitelist is the identity of the whitelist file, see
	// [WhitelistIdentity]. Empty when none is used.
	Whitelist string `msgpack:"whitelist"`
}

// FileName returns the cache file name for k.
func (k Key) FileName() string {
	name := fmt.Sprintf("%s_tn_%t_deterministic_%s", k.Language, k.Deterministic, k.InputCase)
	if k.Whitelist != "" {
		name += "_" + k.Whitelist
	}
	return name + ".spkg"
}

// WhitelistIdentity returns the base name of the file at path together with
// a hash of its content, so that editing the file invalidates the cache.
// An empty path yields an empty identity.
func WhitelistIdentity(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("gcache: whitelist identity: %w", err)
	}
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))] + "-" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

type envelope struct {
	Key      Key                `msgpack:"key"`
	Grammars *pipeline.Grammars `msgpack:"grammars"`
}

// Cache is a directory of compiled grammars. A nil Cache or one without a
// directory never stores anything.
type Cache struct {
	// Dir is the cache directory. It is created on first store.
	Dir string

	// Overwrite forces a rebuild even when a cache file exists.
	Overwrite bool

	// Logger receives cache warnings. Nil means slog.Default().
	Logger *slog.Logger
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Path returns the file path of key inside the cache directory.
func (c *Cache) Path(key Key) string {
	return filepath.Join(c.Dir, key.FileName())
}

// Load reads the grammars stored for key. A missing file yields an error
// matching fs.ErrNotExist.
func (c *Cache) Load(key Key) (*pipeline.Grammars, error) {
	f, err := os.Open(c.Path(key))
	if err != nil {
		return nil, fmt.Errorf("gcache: %w", err)
	}
	defer f.Close()

	hdr := make([]byte, len(magic)+1)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", ErrIncompatible, err)
	}
	if !bytes.Equal(hdr[:len(magic)], magic) || hdr[len(magic)] != formatVersion {
		return nil, fmt.Errorf("%w: bad header %q", ErrIncompatible, hdr)
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("gcache: %w", err)
	}
	defer zr.Close()

	var e envelope
	if err := msgpack.NewDecoder(zr).Decode(&e); err != nil {
		return nil, fmt.Errorf("gcache: decode %s: %w", key.FileName(), err)
	}
	if e.Key != key || e.Grammars == nil {
		return nil, fmt.Errorf("%w: stored for %+v", ErrIncompatible, e.Key)
	}
	return e.Grammars, nil
}

// Store writes g for key. The file is written to a temporary name first
// and renamed into place.
func (c *Cache) Store(key Key, g *pipeline.Grammars) (err error) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	tmp, err := os.CreateTemp(c.Dir, key.FileName()+".*.tmp")
	if err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(append(bytes.Clone(magic), formatVersion)); err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	zw, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(envelope{Key: key, Grammars: g}); err != nil {
		zw.Close()
		return fmt.Errorf("gcache: encode %s: %w", key.FileName(), err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path(key)); err != nil {
		return fmt.Errorf("gcache: %w", err)
	}
	return nil
}

// LoadOrBuild returns the cached grammars for key unless Overwrite is set
// or none are stored, in which case it calls build and stores the result.
// Cache failures are logged and never fail the call; build errors do.
func (c *Cache) LoadOrBuild(key Key, build func() (*pipeline.Grammars, error)) (g *pipeline.Grammars, cached bool, err error) {
	if c == nil || c.Dir == "" {
		g, err = build()
		return g, false, err
	}
	if !c.Overwrite {
		g, err := c.Load(key)
		if err == nil {
			return g, true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger().Warn("gcache: ignoring unreadable cache file", "path", c.Path(key), "err", err)
		}
	}
	g, err = build()
	if err != nil {
		return nil, false, err
	}
	if err := c.Store(key, g); err != nil {
		c.logger().Warn("gcache: failed to store compiled grammars", "path", c.Path(key), "err", err)
	}
	return g, false, nil
}
