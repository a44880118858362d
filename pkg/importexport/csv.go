package importexport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"gorm.io/gorm"
)

// CardInput is one parsed CSV row. Front and back are required; example
// and notes columns are optional.
type CardInput struct {
	Front   string
	Back    string
	Example string
	Notes   string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const maxDelimiterSampleRecords = 20

// ParseCardsCSV reads card rows from CSV data. It strips a UTF-8 BOM,
// sniffs the delimiter (comma, semicolon or tab), skips a recognized
// header row and returns the parsed inputs plus the number of skipped
// records.
func ParseCardsCSV(data []byte) ([]CardInput, int, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delimiter := detectCSVDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	var cards []CardInput
	skipped := 0
	checkedHeader := false

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if isEmptyCSVRecord(record) {
			skipped++
			continue
		}
		if !checkedHeader {
			checkedHeader = true
			if isHeaderRecord(record) {
				continue
			}
		}
		if len(record) < 2 {
			skipped++
			continue
		}
		front := strings.TrimSpace(record[0])
		back := strings.TrimSpace(record[1])
		if front == "" || back == "" {
			skipped++
			continue
		}
		input := CardInput{Front: front, Back: back}
		if len(record) > 2 {
			input.Example = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			input.Notes = strings.TrimSpace(record[3])
		}
		cards = append(cards, input)
	}

	return cards, skipped, nil
}

func detectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', '\t', ';'}
	bestDelimiter := candidates[0]
	bestScore := -1

	for _, delimiter := range candidates {
		score, err := scoreDelimiter(data, delimiter, maxDelimiterSampleRecords)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestDelimiter = delimiter
		}
	}

	if bestScore <= 0 {
		return ','
	}
	return bestDelimiter
}

func scoreDelimiter(data []byte, delimiter rune, maxRecords int) (int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	counts := make(map[int]int)
	recordsSeen := 0

	for recordsSeen < maxRecords {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if isEmptyCSVRecord(record) {
			continue
		}
		recordsSeen++

		if len(record) < 2 {
			continue
		}
		counts[len(record)]++
	}

	best := 0
	for _, score := range counts {
		if score > best {
			best = score
		}
	}
	return best, nil
}

func isEmptyCSVRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeaderRecord(record []string) bool {
	if len(record) < 2 {
		return false
	}
	left := strings.ToLower(strings.TrimSpace(record[0]))
	right := strings.ToLower(strings.TrimSpace(record[1]))
	headers := map[string]struct{}{
		"front":      {},
		"back":       {},
		"question":   {},
		"answer":     {},
		"term":       {},
		"definition": {},
	}
	_, leftOK := headers[left]
	_, rightOK := headers[right]
	return leftOK && rightOK
}

// UpsertCards writes the parsed inputs into the deck in one transaction.
// A row whose front matches an existing card updates that card; anything
// else is inserted at the end of the deck. Returns inserted and updated
// counts.
func UpsertCards(deckID string, inputs []CardInput) (int, int, error) {
	inserted := 0
	updated := 0

	if len(inputs) == 0 {
		return inserted, updated, nil
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		row := tx.Model(&db.Card{}).Where("deck_id = ?", deckID).Select("COALESCE(MAX(position), -1)").Row()
		if err := row.Scan(&maxPosition); err != nil {
			return err
		}

		for _, input := range inputs {
			result := tx.Model(&db.Card{}).
				Where("deck_id = ? AND front = ?", deckID, input.Front).
				Updates(map[string]interface{}{
					"back":    input.Back,
					"example": input.Example,
					"notes":   input.Notes,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				updated++
				continue
			}

			maxPosition++
			card := db.Card{
				DeckID:   deckID,
				Front:    input.Front,
				Back:     input.Back,
				Example:  input.Example,
				Notes:    input.Notes,
				Position: maxPosition,
			}
			if err := tx.Create(&card).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}

// BuildExportCSV renders the deck's cards with a header row, in authoring
// order.
func BuildExportCSV(cards []db.Card) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"front", "back", "example", "notes"}); err != nil {
		return nil, err
	}
	for _, card := range cards {
		if err := writer.Write([]string{card.Front, card.Back, card.Example, card.Notes}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename builds a stable download name from the deck title.
func ExportFilename(deckTitle string, now time.Time) string {
	slug := strings.ToLower(strings.TrimSpace(deckTitle))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "deck"
	}
	return fmt.Sprintf("%s-%s.csv", slug, now.Format("2006-01-02"))
}
