package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spboyer/irtcal/internal/models"
)

// parseTriples reads the plain response layout: a response count, an
// examinee count and an item count, followed by that many
// (examinee, item, outcome) triples. Tokens are whitespace separated and
// '#' starts a comment.
func parseTriples(r io.Reader) (*Table, error) {
	tokens, err := scanTokens(r)
	if err != nil {
		return nil, err
	}
	next := func(what string) (int, error) {
		tok, ok := tokens.next()
		if !ok {
			return 0, fmt.Errorf("%w: triples: unexpected end of input reading %s", models.ErrInvalidInput, what)
		}
		n, err := strconv.Atoi(tok.text)
		if err != nil {
			return 0, fmt.Errorf("%w: triples: line %d: %s %q is not an integer", models.ErrInvalidInput, tok.line, what, tok.text)
		}
		return n, nil
	}

	count, err := next("response count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: triples: response count %d is negative", models.ErrInvalidInput, count)
	}
	examinees, err := next("examinee count")
	if err != nil {
		return nil, err
	}
	items, err := next("item count")
	if err != nil {
		return nil, err
	}

	responses := make([]models.Response, 0, min(count, len(tokens.toks)/3))
	for i := range count {
		examinee, err := next(fmt.Sprintf("examinee of response %d", i))
		if err != nil {
			return nil, err
		}
		item, err := next(fmt.Sprintf("item of response %d", i))
		if err != nil {
			return nil, err
		}
		outcome, err := next(fmt.Sprintf("outcome of response %d", i))
		if err != nil {
			return nil, err
		}
		if outcome != 0 && outcome != 1 {
			return nil, fmt.Errorf("%w: triples: response %d: outcome %d is not 0 or 1", models.ErrInvalidInput, i, outcome)
		}
		responses = append(responses, models.Response{Examinee: examinee, Item: item, Correct: outcome == 1})
	}
	if tok, ok := tokens.next(); ok {
		return nil, fmt.Errorf("%w: triples: line %d: unexpected %q after %d responses", models.ErrInvalidInput, tok.line, tok.text, count)
	}

	d, err := models.NewDataset(examinees, items, responses)
	if err != nil {
		return nil, fmt.Errorf("triples: %w", err)
	}
	return &Table{Dataset: d, Format: FormatTriples}, nil
}

type token struct {
	text string
	line int
}

type tokenStream struct {
	toks []token
	pos  int
}

func (s *tokenStream) next() (token, bool) {
	if s.pos >= len(s.toks) {
		return token{}, false
	}
	s.pos++
	return s.toks[s.pos-1], true
}

func scanTokens(r io.Reader) (*tokenStream, error) {
	s := &tokenStream{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text, _, _ := strings.Cut(sc.Text(), "#")
		for _, f := range strings.Fields(text) {
			s.toks = append(s.toks, token{text: f, line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("triples: %w", err)
	}
	return s, nil
}
