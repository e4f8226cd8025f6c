package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ankora/ankora/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. A card is a
// "Q:" block optionally followed by "A:" and "C:" blocks; "---" lines
// and new "Q:" lines both terminate the current card. Blocks may span
// multiple lines. Cards without a question are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var current domain.Card
	var block []string
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch st {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Question != "" {
			cards = append(cards, current)
		}
		current = domain.Card{}
		st = seeking
	}

	startBlock := func(next state, line, prefix string) {
		flushBlock()
		st = next
		block = append(block, strings.TrimPrefix(strings.TrimPrefix(line, prefix), " "))
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			finishCard()
		case strings.HasPrefix(line, questionPrefix):
			if st != seeking { // a new question always starts a new card
				finishCard()
			}
			startBlock(readingQuestion, line, questionPrefix)
		case strings.HasPrefix(line, answerPrefix):
			startBlock(readingAnswer, line, answerPrefix)
		case strings.HasPrefix(line, contextPrefix):
			startBlock(readingContext, line, contextPrefix)
		case st != seeking:
			block = append(block, line)
		}
	}

	finishCard() // finish the very last card in the stream

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}
