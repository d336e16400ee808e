// Package fetch downloads structures from public databases: receptors from
// RCSB PDB and ligands from PubChem.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidPDBID indicates a malformed PDB identifier.
var ErrInvalidPDBID = errors.New("invalid PDB ID")

// Default endpoints.
const (
	DefaultPDBURL     = "https://files.rcsb.org/download/%s.pdb"
	DefaultPubChemURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug/compound"
	DefaultTimeout    = 30 * time.Second
)

// Client downloads molecular structures over HTTP.
type Client struct {
	httpClient *http.Client
	pdbURL     string
	pubchemURL string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithPDBURL overrides the RCSB download URL template (one %s for the ID).
func WithPDBURL(u string) Option {
	return func(c *Client) { c.pdbURL = u }
}

// WithPubChemURL overrides the PubChem PUG REST base URL.
func WithPubChemURL(u string) Option {
	return func(c *Client) { c.pubchemURL = u }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client with the default endpoints and timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		pdbURL:     DefaultPDBURL,
		pubchemURL: DefaultPubChemURL,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidatePDBID checks the 4-character alphanumeric PDB ID format.
func ValidatePDBID(id string) error {
	id = strings.TrimSpace(id)
	if len(id) != 4 {
		return fmt.Errorf("%w: %q (must be 4 characters)", ErrInvalidPDBID, id)
	}
	for _, r := range id {
		if !isAlnum(r) {
			return fmt.Errorf("%w: %q (must be alphanumeric)", ErrInvalidPDBID, id)
		}
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// FetchPDB downloads a receptor structure by PDB ID into dir. It writes the
// raw file as <ID>_original.pdb and a cleaned copy, stripped to ATOM records
// (no waters or hetero atoms), as <ID>_cleaned.pdb. The cleaned path is
// returned.
func (c *Client) FetchPDB(ctx context.Context, pdbID, dir string) (string, error) {
	if err := ValidatePDBID(pdbID); err != nil {
		return "", err
	}
	pdbID = strings.ToUpper(strings.TrimSpace(pdbID))

	rawPath := filepath.Join(dir, pdbID+"_original.pdb")
	if err := c.download(ctx, fmt.Sprintf(c.pdbURL, pdbID), rawPath); err != nil {
		return "", fmt.Errorf("could not download PDB ID %s: %w", pdbID, err)
	}

	cleanedPath := filepath.Join(dir, pdbID+"_cleaned.pdb")
	if err := cleanReceptor(rawPath, cleanedPath); err != nil {
		return "", fmt.Errorf("could not clean %s: %w", pdbID, err)
	}

	c.logger.Info("fetched PDB structure", "id", pdbID, "path", cleanedPath)
	return cleanedPath, nil
}

// FetchLigand downloads a 3D SDF from PubChem into dir. Numeric identifiers
// are treated as CIDs, anything else as a compound name. Returns the path.
func (c *Client) FetchLigand(ctx context.Context, identifier, dir string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", errors.New("empty ligand identifier")
	}

	kind := "name"
	if isNumeric(identifier) {
		kind = "cid"
	}
	u := fmt.Sprintf("%s/%s/%s/SDF?record_type=3d", c.pubchemURL, kind, url.PathEscape(identifier))

	path := filepath.Join(dir, sanitizeName(identifier)+".sdf")
	if err := c.download(ctx, u, path); err != nil {
		return "", fmt.Errorf("could not download ligand %q: %w", identifier, err)
	}

	c.logger.Info("fetched ligand", "identifier", identifier, "path", path)
	return path, nil
}

func (c *Client) download(ctx context.Context, u, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

// cleanReceptor copies only "ATOM " records, which drops waters, hetero
// groups, and annotation records in one pass.
func cleanReceptor(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "ATOM ") {
			fmt.Fprintln(w, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return w.Flush()
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// sanitizeName makes an identifier safe for use as a file name.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if isAlnum(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}
