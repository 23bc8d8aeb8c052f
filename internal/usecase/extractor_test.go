package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
	"go.uber.org/zap/zaptest"
)

var cnnFields = FieldLocators{Headline: linkLoc, Link: linkLoc, Timestamp: timeLoc}

func newTestExtractor(t *testing.T, clock *fakeClock, fields FieldLocators) *Extractor {
	e := NewExtractor(fields, 3, time.Second, zaptest.NewLogger(t))
	e.clock = clock
	return e
}

func failingTimes(n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = errors.New("stale element reference")
	}
	return errs
}

func TestExtractor_ExtractsFieldsInOrder(t *testing.T) {
	page := newHeadlinePage("https://www.cnn.com", 3)
	e := newTestExtractor(t, newFakeClock(), cnnFields)

	res, err := e.Extract(context.Background(), "https://www.cnn.com/world", elements(page.containers), 1)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Zero(t, res.Skipped)

	assert.Equal(t, entity.HeadlineRecord{
		Rank:          1,
		Headline:      "https://www.cnn.com headline 1",
		Link:          "https://www.cnn.com/story-1",
		PublishedTime: "2 hours ago",
	}, res.Records[0])
	assert.Equal(t, 2, res.Records[1].Rank)
	assert.Equal(t, 3, res.Records[2].Rank)
}

func TestExtractor_RankStartsAtOffset(t *testing.T) {
	page := newHeadlinePage("https://www.bbc.com/news", 2)
	e := newTestExtractor(t, newFakeClock(), cnnFields)

	res, err := e.Extract(context.Background(), page.url, elements(page.containers), 11)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Records[0].Rank)
	assert.Equal(t, 12, res.Records[1].Rank)
}

func TestExtractor_SucceedsOnLastAttempt(t *testing.T) {
	clock := newFakeClock()
	page := newHeadlinePage("https://www.cnn.com", 1)
	anchor := page.containers[0].children[linkLoc]
	anchor.textErrs = failingTimes(2)

	e := newTestExtractor(t, clock, cnnFields)
	res, err := e.Extract(context.Background(), page.url, elements(page.containers), 1)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 3, anchor.textCalls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestExtractor_SkipsAfterExhaustingAttempts(t *testing.T) {
	clock := newFakeClock()
	page := newHeadlinePage("https://www.cnn.com", 1)
	anchor := page.containers[0].children[linkLoc]
	anchor.textErrs = failingTimes(3)

	e := newTestExtractor(t, clock, cnnFields)
	res, err := e.Extract(context.Background(), page.url, elements(page.containers), 1)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 3, anchor.textCalls, "every attempt is used before skipping")
	assert.Len(t, clock.Sleeps(), 2, "no delay after the final attempt")
}

func TestExtractor_OutputCountBounds(t *testing.T) {
	tests := []struct {
		name          string
		containers    int
		alwaysFailing []int
		flaky         []int // fail twice, then succeed
	}{
		{"all good", 10, nil, nil},
		{"some always failing", 10, []int{0, 4, 9}, nil},
		{"flaky recover", 10, nil, []int{1, 2, 3}},
		{"mixed", 6, []int{5}, []int{0}},
		{"all failing", 4, []int{0, 1, 2, 3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newHeadlinePage("https://www.cnn.com", tt.containers)
			for _, i := range tt.alwaysFailing {
				page.containers[i].children[linkLoc].textErrs = failingTimes(3)
			}
			for _, i := range tt.flaky {
				page.containers[i].children[linkLoc].textErrs = failingTimes(2)
			}

			e := newTestExtractor(t, newFakeClock(), cnnFields)
			res, err := e.Extract(context.Background(), page.url, elements(page.containers), 1)
			require.NoError(t, err)

			n := tt.containers
			assert.LessOrEqual(t, len(res.Records), n)
			assert.Equal(t, n-len(tt.alwaysFailing), len(res.Records))
			assert.Equal(t, len(tt.alwaysFailing), res.Skipped)
			for i, rec := range res.Records {
				assert.Equal(t, i+1, rec.Rank, "ranks are contiguous over emitted records")
			}
		})
	}
}

func TestExtractor_SentinelsForMissingOptionalFields(t *testing.T) {
	page := &fakePage{url: "https://www.bbc.com/news"}
	noLink := &fakeElement{page: page, text: "  Storm   hits coast \n"}
	emptyTime := headlineContainer(page, "Markets rally", "https://www.bbc.com/news/business-1", "")
	emptyTime.children[timeLoc] = &fakeElement{page: page, text: "   "}
	badHref := headlineContainer(page, "Election results", "javascript:void(0)", "")

	fields := FieldLocators{Link: linkLoc, Timestamp: timeLoc}
	e := newTestExtractor(t, newFakeClock(), fields)
	res, err := e.Extract(context.Background(), page.url, []repository.Element{noLink, emptyTime, badHref}, 1)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	assert.Equal(t, "Storm hits coast", res.Records[0].Headline)
	assert.Equal(t, entity.NoLinkAvailable, res.Records[0].Link)
	assert.Equal(t, entity.UnknownPublishedTime, res.Records[0].PublishedTime)

	assert.Equal(t, "https://www.bbc.com/news/business-1", res.Records[1].Link)
	assert.Equal(t, entity.UnknownPublishedTime, res.Records[1].PublishedTime)

	assert.Equal(t, entity.NoLinkAvailable, res.Records[2].Link)
}

func TestExtractor_ContainerIsAnchor(t *testing.T) {
	page := &fakePage{url: "https://news.example.com/"}
	anchor := &fakeElement{page: page, text: "Local news", attrs: map[string]string{"href": "local/1"}}

	e := newTestExtractor(t, newFakeClock(), FieldLocators{})
	res, err := e.Extract(context.Background(), page.url, []repository.Element{anchor}, 1)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "https://news.example.com/local/1", res.Records[0].Link)
	assert.Equal(t, entity.UnknownPublishedTime, res.Records[0].PublishedTime)
}

func TestExtractor_EmptyHeadlineIsRetriedThenSkipped(t *testing.T) {
	clock := newFakeClock()
	page := &fakePage{url: "https://news.example.com"}
	blank := &fakeElement{page: page, text: " \n\t "}

	e := newTestExtractor(t, clock, FieldLocators{})
	res, err := e.Extract(context.Background(), page.url, []repository.Element{blank}, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 3, blank.textCalls)
}

func TestExtractor_MissingHeadlineElementIsExtractionFailure(t *testing.T) {
	page := &fakePage{url: "https://news.example.com"}
	empty := &fakeElement{page: page}

	e := newTestExtractor(t, newFakeClock(), cnnFields)
	_, err := e.extractWithRetry(context.Background(), page.url, 0, empty)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrExtraction)
	assert.ErrorIs(t, err, repository.ErrElementNotFound)

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, 3, extractErr.Attempt)
}

func TestExtractor_CancelledContext(t *testing.T) {
	page := newHeadlinePage("https://www.cnn.com", 2)
	page.containers[0].children[linkLoc].textErrs = failingTimes(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestExtractor(t, newFakeClock(), cnnFields)
	_, err := e.Extract(ctx, page.url, elements(page.containers), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func elements(cs []*fakeElement) []repository.Element {
	out := make([]repository.Element, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}
