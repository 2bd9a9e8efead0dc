package cache

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/oshokin/buildpack-packager/internal/manifest"

	// Ensure MD5 and SHA-256 are registered for crypto.Hash and go-digest.
	_ "crypto/md5"
	_ "crypto/sha256"
)

// ChecksumFunction computes the digest compared with Dependency.MD5.
const ChecksumFunction crypto.Hash = crypto.MD5

var (
	// ErrChecksumMismatch is wrapped by ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	errHashUnavailable = errors.New("hash function unavailable")
)

// ChecksumError reports a dependency whose bytes do not match the manifest.
type ChecksumError struct {
	Name     string
	Version  string
	URI      string
	Expected string
	Got      string
}

// Error implements the error interface.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("file: %s, version: %s downloaded at location %s\n"+
		"\tis reporting a different checksum than the one specified in the manifest (expected %s, got %s)",
		e.Name, e.Version, e.URI, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// Verify checks the file at path against dep.MD5 and, when present,
// dep.SHA256. A mismatch is reported as *ChecksumError.
func Verify(path string, dep manifest.Dependency) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	if !ChecksumFunction.Available() {
		return fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	writers := []io.Writer{hasher}

	var (
		expectedSHA digest.Digest
		verifier    digest.Verifier
	)

	if dep.SHA256 != "" {
		expectedSHA = digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(dep.SHA256))
		if err = expectedSHA.Validate(); err != nil {
			return fmt.Errorf("dependency %s: sha256: %w", dep, err)
		}

		verifier = expectedSHA.Verifier()
		writers = append(writers, verifier)
	}

	if _, err = io.Copy(io.MultiWriter(writers...), f); err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(got, dep.MD5) {
		return &ChecksumError{
			Name:     dep.Name,
			Version:  dep.Version,
			URI:      dep.URI,
			Expected: dep.MD5,
			Got:      got,
		}
	}

	if verifier != nil && !verifier.Verified() {
		actual, _ := digestFile(path)

		return &ChecksumError{
			Name:     dep.Name,
			Version:  dep.Version,
			URI:      dep.URI,
			Expected: expectedSHA.String(),
			Got:      actual.String(),
		}
	}

	return nil
}

// digestFile returns the sha256 digest of the file at path.
func digestFile(path string) (digest.Digest, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	return digest.SHA256.FromReader(f)
}
