package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/user/headline-scraper/internal/usecase"
)

const maxPromptTries = 3

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// runOptions asks for the per-run parameters. An empty answer keeps the shown default.
func (p *prompter) runOptions(pages, perPage int, recipient string) (usecase.RunOptions, error) {
	var opts usecase.RunOptions
	var err error
	if opts.Pages, err = p.positiveInt("Number of pages to scrape", pages); err != nil {
		return opts, err
	}
	if opts.HeadlinesPerPage, err = p.positiveInt("Headlines per page", perPage); err != nil {
		return opts, err
	}
	if opts.Recipient, err = p.recipient(recipient); err != nil {
		return opts, err
	}
	return opts, nil
}

func (p *prompter) positiveInt(label string, def int) (int, error) {
	for i := 0; i < maxPromptTries; i++ {
		answer, err := p.ask(fmt.Sprintf("%s [%d]: ", label, def))
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n > 0 {
			return n, nil
		}
		fmt.Fprintln(p.out, "Please enter a positive whole number.")
	}
	return 0, &usecase.ValidationError{Field: strings.ToLower(label), Message: "no valid answer given"}
}

func (p *prompter) recipient(def string) (string, error) {
	for i := 0; i < maxPromptTries; i++ {
		answer, err := p.ask(fmt.Sprintf("Recipient email [%s]: ", def))
		if err != nil {
			return "", err
		}
		if answer == "" {
			return def, nil
		}
		if err := usecase.ValidateRecipient(answer); err == nil {
			return answer, nil
		}
		fmt.Fprintln(p.out, "Please enter an email address such as name@example.com.")
	}
	return "", &usecase.ValidationError{Field: "recipient", Message: "no valid answer given"}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errors.New("input closed before all questions were answered")
	}
	return strings.TrimSpace(p.in.Text()), nil
}
