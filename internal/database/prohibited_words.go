package database

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SeedProhibitedWords inserts words into the prohibited_words table,
// skipping blanks and words already present. Returns the number added.
func (db *DB) SeedProhibitedWords(words []string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, word := range words {
		word = normalizeWord(word)
		if word == "" {
			continue
		}

		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM prohibited_words WHERE word = ?", word).Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to check prohibited word: %w", err)
		}
		if count > 0 {
			continue
		}

		if _, err := tx.Exec("INSERT INTO prohibited_words (word) VALUES (?)", word); err != nil {
			return 0, fmt.Errorf("failed to insert prohibited word %q: %w", word, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, nil
}

// SeedProhibitedWordsFromURL downloads a newline separated word list and
// seeds it.
func (db *DB) SeedProhibitedWordsFromURL(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download word list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bad status code from word list URL: %d", resp.StatusCode)
	}

	words, err := readWordList(resp.Body)
	if err != nil {
		return 0, err
	}
	return db.SeedProhibitedWords(words)
}

func readWordList(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if word := normalizeWord(scanner.Text()); word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading word list: %w", err)
	}
	return words, nil
}

// ProhibitedWords returns every word in the table, sorted.
func (db *DB) ProhibitedWords() ([]string, error) {
	rows, err := db.Query("SELECT word FROM prohibited_words ORDER BY word")
	if err != nil {
		return nil, fmt.Errorf("failed to list prohibited words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("failed to scan prohibited word: %w", err)
		}
		words = append(words, word)
	}
	return words, rows.Err()
}

// IsProhibited checks if a single word is in the list
func (db *DB) IsProhibited(word string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM prohibited_words WHERE word = ?", normalizeWord(word)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check prohibited word: %w", err)
	}
	return count > 0, nil
}

// ValidateWords returns the subset of words that are prohibited
func (db *DB) ValidateWords(words []string) ([]string, error) {
	var found []string
	for _, word := range words {
		bad, err := db.IsProhibited(word)
		if err != nil {
			return nil, err
		}
		if bad {
			found = append(found, word)
		}
	}
	return found, nil
}

func normalizeWord(word string) string {
	return strings.TrimSpace(strings.ToLower(word))
}
