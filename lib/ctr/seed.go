package ctr

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// seedCountries are the storefront regions raced against Nintendo's
// seed-lookup CDN, grounded on decrypt/cia.rs's fetch_seed.
var seedCountries = []string{"JP", "US", "GB", "KR", "TW", "AU", "NZ"}

var seedHTTPClient = &http.Client{
	Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
}

var (
	seedDBOnce sync.Once
	seedDBMap  map[string][16]byte
)

func loadSeedDB() map[string][16]byte {
	seedDBOnce.Do(func() {
		f, err := os.Open(filepath.Join(".", "seeddb.bin"))
		if err != nil {
			seedDBMap = map[string][16]byte{}
			return
		}
		defer f.Close()
		db, err := ReadSeedDatabase(f)
		if err != nil {
			seedDBMap = map[string][16]byte{}
			return
		}
		seedDBMap = db.ToMap()
	})
	return seedDBMap
}

// FetchSeed races a title's seed lookup against Nintendo's storefront
// endpoints across seven countries, returning the first successful 16-byte
// response. Grounded on decrypt/cia.rs's fetch_seed using futures'
// select_ok; golang.org/x/sync/errgroup provides the equivalent
// first-success fan-out in Go.
func FetchSeed(ctx context.Context, titleID string) ([16]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		result [16]byte
		found  bool
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, country := range seedCountries {
		country := country
		g.Go(func() error {
			url := fmt.Sprintf("https://kagiya-ctr.cdn.nintendo.net/title/0x%s/ext_key?country=%s", titleID, country)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil
			}
			resp, err := seedHTTPClient.Do(req)
			if err != nil {
				return nil
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil || len(body) != 16 {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if !found {
				copy(result[:], body)
				found = true
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if !found {
		return [16]byte{}, fmt.Errorf("ctr: no seed server responded for title %s", titleID)
	}
	return result, nil
}

// GetNewKey derives an NCCH's seed-crypto KeyY: it looks the title's seed
// up in a local seeddb.bin (loaded lazily, once, process-wide), falling
// back to Nintendo's CDN lookup, verifies the seed against the NCCH's
// seedcheck hash, and on success returns SHA-256(keyY || seed)[0:16].
// Grounded on decrypt/cia.rs's get_new_key.
func GetNewKey(keyY [16]byte, header NcchHeader, titleID string) ([16]byte, error) {
	seed, ok := loadSeedDB()[titleID]
	if !ok {
		fetched, err := FetchSeed(context.Background(), titleID)
		if err != nil {
			return [16]byte{}, err
		}
		seed = fetched
	}

	revTID, err := hex.DecodeString(titleID)
	if err != nil {
		return [16]byte{}, fmt.Errorf("ctr: decode title id: %w", err)
	}
	for i, j := 0, len(revTID)-1; i < j; i, j = i+1, j-1 {
		revTID[i], revTID[j] = revTID[j], revTID[i]
	}

	sum := sha256.Sum256(append(append([]byte{}, seed[:]...), revTID...))
	if binary.BigEndian.Uint32(sum[0:4]) != header.SeedCheck() {
		return [16]byte{}, nil
	}

	keyStr := sha256.Sum256(append(append([]byte{}, keyY[:]...), seed[:]...))
	var out [16]byte
	copy(out[:], keyStr[0:16])
	return out, nil
}
