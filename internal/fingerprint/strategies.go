package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc64"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const manifestReadLimit = 64 * 1024

// contentHashStrategy hashes the AACS content-hash tables. Those files are
// pressed with the disc and identify its content exactly, so this is the
// strongest signal available.
func contentHashStrategy(ctx context.Context, base, _ string) (Fingerprint, bool, error) {
	entries, err := os.ReadDir(filepath.Join(base, "AACS"))
	if err != nil {
		return Fingerprint{}, false, nil
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if strings.HasPrefix(name, "contenthash") && strings.HasSuffix(name, ".hsh") {
			files = append(files, filepath.Join("AACS", entry.Name()))
		}
	}
	if len(files) == 0 {
		return Fingerprint{}, false, nil
	}
	sort.Strings(files)

	digest, err := sha256Manifest(ctx, base, files)
	if err != nil {
		return Fingerprint{}, false, err
	}
	return Fingerprint{Type: TypeContentID, ContentID: digest}, true, nil
}

// discIDStrategy reads CERTIFICATE/id.bdmv. The file embeds the AACS
// organization ID at offset 40 and the 20-byte disc ID at offset 44; a file
// that does not follow that layout is hashed whole instead.
func discIDStrategy(ctx context.Context, base, _ string) (Fingerprint, bool, error) {
	path := filepath.Join(base, "CERTIFICATE", "id.bdmv")
	data, err := os.ReadFile(path)
	if err != nil {
		return Fingerprint{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return Fingerprint{}, false, err
	}

	if len(data) >= 64 && string(data[0:4]) == "BDID" {
		return Fingerprint{
			Type:           TypeDiscID,
			OrganizationID: hex.EncodeToString(data[40:44]),
			DiscID:         hex.EncodeToString(data[44:64]),
		}, true, nil
	}

	sum := sha256.Sum256(data)
	return Fingerprint{Type: TypeDiscID, DiscID: hex.EncodeToString(sum[:])}, true, nil
}

var metaTitlePattern = regexp.MustCompile(`<(?:[A-Za-z][\w-]*:)?name>([^<]+)</(?:[A-Za-z][\w-]*:)?name>`)

// embeddedTitleStrategy pulls a human-readable title either from the Blu-ray
// metadata XML or, for DVDs, from a meaningful volume label.
func embeddedTitleStrategy(ctx context.Context, base, discName string) (Fingerprint, bool, error) {
	if err := ctx.Err(); err != nil {
		return Fingerprint{}, false, err
	}

	metaPath := filepath.Join(base, "BDMV", "META", "DL", "bdmt_eng.xml")
	if data, err := os.ReadFile(metaPath); err == nil {
		if m := metaTitlePattern.FindSubmatch(data); m != nil {
			title := strings.TrimSpace(string(m[1]))
			if title != "" {
				return Fingerprint{Type: TypeEmbeddedTitle, EmbeddedTitle: title}, true, nil
			}
		}
	}

	if hasDir(base, "VIDEO_TS") {
		if title := usableTitle(discName); title != "" {
			return Fingerprint{Type: TypeEmbeddedTitle, EmbeddedTitle: title}, true, nil
		}
	}
	return Fingerprint{}, false, nil
}

var crcTable = crc64.MakeTable(crc64.ECMA)

// manifestStrategy is the fallback of last resort: a crc64 over the sorted
// disc structure manifest, hashing each file's relative path, size, and first
// 64 KiB of content.
func manifestStrategy(ctx context.Context, base, _ string) (Fingerprint, bool, error) {
	var files []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return Fingerprint{}, false, err
	}
	if len(files) == 0 {
		return Fingerprint{}, false, nil
	}
	sort.Strings(files)

	h := crc64.New(crcTable)
	for _, rel := range files {
		if err := appendFileToHash(h, base, rel, manifestReadLimit); err != nil {
			return Fingerprint{}, false, err
		}
	}
	return Fingerprint{
		Type:  TypeCRC64,
		CRC64: strconv.FormatUint(h.Sum64(), 16),
	}, true, nil
}

func sha256Manifest(ctx context.Context, base string, files []string) (string, error) {
	h := sha256.New()
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := appendFileToHash(h, base, rel, 0); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func appendFileToHash(h hash.Hash, base, rel string, maxBytes int64) error {
	abs := filepath.Join(base, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	_, _ = h.Write([]byte(filepath.ToSlash(rel)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	_, _ = h.Write([]byte{0})

	file, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if maxBytes > 0 && info.Size() > maxBytes {
		reader = io.LimitReader(file, maxBytes)
	}
	if _, err := io.Copy(h, reader); err != nil {
		return fmt.Errorf("hash %s: %w", rel, err)
	}
	_, _ = h.Write([]byte{0})
	return nil
}

func hasDir(base, name string) bool {
	info, err := os.Stat(filepath.Join(base, name))
	return err == nil && info.IsDir()
}
