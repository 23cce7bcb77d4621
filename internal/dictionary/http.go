// internal/dictionary/http.go
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPrimaryURL  = "https://api.datamuse.com"
	DefaultFallbackURL = "https://api.dictionaryapi.dev"

	defaultMeaning  = "Valid English word"
	missingMeaning  = "No definition available"
	maxResponseSize = 1 << 20
)

// partOfSpeechPrefix matches the "n\t" tag Datamuse puts before definitions.
var partOfSpeechPrefix = regexp.MustCompile(`^\w+\t`)

// HTTPClient asks Datamuse first and falls back to dictionaryapi.dev when
// Datamuse has no exact match. A transport failure on either is an error.
type HTTPClient struct {
	PrimaryURL  string
	FallbackURL string
	Client      *http.Client
	Logger      *logrus.Logger
}

func NewHTTPClient(primaryURL, fallbackURL string, timeout time.Duration, logger *logrus.Logger) *HTTPClient {
	if primaryURL == "" {
		primaryURL = DefaultPrimaryURL
	}
	if fallbackURL == "" {
		fallbackURL = DefaultFallbackURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPClient{
		PrimaryURL:  strings.TrimRight(primaryURL, "/"),
		FallbackURL: strings.TrimRight(fallbackURL, "/"),
		Client:      &http.Client{Timeout: timeout},
		Logger:      logger,
	}
}

type datamuseEntry struct {
	Word string   `json:"word"`
	Defs []string `json:"defs"`
}

type dictionaryEntry struct {
	Word     string `json:"word"`
	Phonetic string `json:"phonetic"`
	Meanings []struct {
		Definitions []struct {
			Definition string `json:"definition"`
		} `json:"definitions"`
	} `json:"meanings"`
}

func (c *HTTPClient) Validate(ctx context.Context, word string) (Result, error) {
	res, found, err := c.lookupPrimary(ctx, word)
	if err != nil {
		return Result{}, err
	}
	if found {
		return res, nil
	}
	return c.lookupFallback(ctx, word)
}

func (c *HTTPClient) lookupPrimary(ctx context.Context, word string) (Result, bool, error) {
	q := url.Values{}
	q.Set("sp", word)
	q.Set("md", "d")
	q.Set("max", "1")
	resp, err := c.get(ctx, c.PrimaryURL+"/words?"+q.Encode())
	if err != nil {
		return Result{}, false, fmt.Errorf("datamuse lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.Logger.WithFields(logrus.Fields{"word": word, "status": resp.StatusCode}).Debug("datamuse returned non-200, trying fallback")
		return Result{}, false, nil
	}
	var entries []datamuseEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&entries); err != nil {
		c.Logger.WithError(err).WithField("word", word).Debug("undecodable datamuse response, trying fallback")
		return Result{}, false, nil
	}
	if len(entries) == 0 || !strings.EqualFold(entries[0].Word, word) {
		return Result{}, false, nil
	}

	meaning := defaultMeaning
	if len(entries[0].Defs) > 0 {
		if def := partOfSpeechPrefix.ReplaceAllString(entries[0].Defs[0], ""); def != "" {
			meaning = def
		}
	}
	return Result{Valid: true, Meaning: meaning}, true, nil
}

func (c *HTTPClient) lookupFallback(ctx context.Context, word string) (Result, error) {
	resp, err := c.get(ctx, c.FallbackURL+"/api/v2/entries/en/"+url.PathEscape(word))
	if err != nil {
		return Result{}, fmt.Errorf("dictionaryapi lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Valid: false}, nil
	}

	res := Result{Valid: true, Meaning: missingMeaning}
	var entries []dictionaryEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&entries); err != nil {
		// A 2xx means the word exists even if the body is unusable.
		return res, nil
	}
	if len(entries) > 0 {
		e := entries[0]
		res.Phonetic = e.Phonetic
		if len(e.Meanings) > 0 && len(e.Meanings[0].Definitions) > 0 && e.Meanings[0].Definitions[0].Definition != "" {
			res.Meaning = e.Meanings[0].Definitions[0].Definition
		}
	}
	return res, nil
}

func (c *HTTPClient) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.Client.Do(req)
}
