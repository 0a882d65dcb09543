// Package extract drives the AI phases of the pipeline: pulling structured
// commercial terms out of proposal emails, summarizing them, comparing
// proposals against an RFP, and turning natural language queries into
// structured RFPs. Every call walks the configured model fallback chain.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rfp-cli/internal/config"
	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/resilience"
	"github.com/sells-group/rfp-cli/pkg/anthropic"
)

// summaryPlaceholder is stored when summary generation fails; ingestion
// never fails a message over a missing summary.
const summaryPlaceholder = "Unable to generate summary."

// summaryContextLimit caps how much of the raw email rides along in the
// summary prompt.
const summaryContextLimit = 500

// Client runs extraction phases against the Anthropic API with model
// fallback, per-model retry, and a shared rate limit.
type Client struct {
	ai        anthropic.Client
	models    []string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// New creates an extraction client from the Anthropic configuration.
func New(ai anthropic.Client, cfg config.AnthropicConfig) *Client {
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 1.0
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		ai:        ai,
		models:    cfg.FallbackModels,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(perSec), 1),
		retry:     resilience.DefaultRetryConfig(),
	}
}

// generate walks the fallback chain until one model produces a response.
// Each model gets its own retry budget; only when every model has failed
// does the call error, carrying the per-model failures.
func (c *Client) generate(ctx context.Context, phase, system, user string) (string, error) {
	if len(c.models) == 0 {
		return "", eris.New("extract: no models configured")
	}

	var failures []string
	for _, m := range c.models {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "extract: rate limit wait")
		}

		cfg := c.retry
		cfg.OnRetry = resilience.RetryLogger("anthropic", phase)
		resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return c.ai.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     m,
				MaxTokens: c.maxTokens,
				System:    system,
				Messages:  []anthropic.Message{{Role: "user", Content: user}},
			})
		})
		if err != nil {
			zap.L().Warn("extract: model failed",
				zap.String("phase", phase),
				zap.String("model", m),
				zap.Error(err),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", m, err))
			if ctx.Err() != nil {
				return "", eris.Wrapf(err, "extract: %s canceled", phase)
			}
			continue
		}

		resp.Usage.LogCost(m, phase)
		zap.L().Debug("extract: model succeeded",
			zap.String("phase", phase),
			zap.String("model", m),
		)
		return extractText(resp), nil
	}

	return "", eris.Errorf("extract: %s: all models failed: %s", phase, strings.Join(failures, "; "))
}

// ParseProposal extracts structured commercial terms from a proposal email.
func (c *Client) ParseProposal(ctx context.Context, emailBody string) (*model.ExtractedTerms, error) {
	text, err := c.generate(ctx, "parse_proposal", parseSystemPrompt, fmt.Sprintf(parseUserPrompt, emailBody))
	if err != nil {
		return nil, err
	}

	var terms model.ExtractedTerms
	if err := json.Unmarshal([]byte(cleanJSON(text)), &terms); err != nil {
		return nil, eris.Wrap(err, "extract: parse proposal response")
	}
	return &terms, nil
}

// SummarizeProposal produces a short human-readable summary of extracted
// terms. It never fails: any generation error is logged and replaced with
// a fixed placeholder so ingestion can proceed.
func (c *Client) SummarizeProposal(ctx context.Context, terms *model.ExtractedTerms, emailBody string) string {
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		zap.L().Warn("extract: marshal terms for summary", zap.Error(err))
		return summaryPlaceholder
	}

	excerpt := emailBody
	if len(excerpt) > summaryContextLimit {
		excerpt = excerpt[:summaryContextLimit] + "..."
	}

	text, err := c.generate(ctx, "summarize_proposal", summarySystemPrompt, fmt.Sprintf(summaryUserPrompt, termsJSON, excerpt))
	if err != nil {
		zap.L().Warn("extract: summary generation failed", zap.Error(err))
		return summaryPlaceholder
	}

	summary := strings.TrimSpace(text)
	if summary == "" {
		return summaryPlaceholder
	}
	return summary
}

// ComparisonInput is one proposal as presented to the comparison prompt.
type ComparisonInput struct {
	ProposalID     string                `json:"proposalId"`
	VendorName     string                `json:"vendorName"`
	VendorID       string                `json:"vendorId"`
	ExtractedTerms *model.ExtractedTerms `json:"extractedData"`
	Summary        *string               `json:"summary"`
}

// CompareProposals evaluates proposals against an RFP and returns scored
// results with a recommendation.
func (c *Client) CompareProposals(ctx context.Context, rfp *model.Rfp, proposals []ComparisonInput) (*model.Comparison, error) {
	budget := "Not specified"
	if rfp.Budget != nil {
		budget = strconv.FormatFloat(*rfp.Budget, 'f', -1, 64)
	}

	reqJSON, err := json.Marshal(rfp.Requirements)
	if err != nil {
		return nil, eris.Wrap(err, "extract: marshal requirements")
	}
	proposalsJSON, err := json.MarshalIndent(proposals, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "extract: marshal proposals")
	}

	text, err := c.generate(ctx, "compare_proposals", compareSystemPrompt,
		fmt.Sprintf(compareUserPrompt, rfp.Title, budget, reqJSON, proposalsJSON))
	if err != nil {
		return nil, err
	}

	var cmp model.Comparison
	if err := json.Unmarshal([]byte(cleanJSON(text)), &cmp); err != nil {
		return nil, eris.Wrap(err, "extract: parse comparison response")
	}
	return &cmp, nil
}

// GeneratedRFP is the structured form of a natural language RFP query.
type GeneratedRFP struct {
	Title        string           `json:"title"`
	LineItems    []model.LineItem `json:"lineItems"`
	Budget       *float64         `json:"budget"`
	DeliveryDate *string          `json:"deliveryDate"`
	PaymentTerms *string          `json:"paymentTerms"`
}

// GenerateRFP converts a natural language query into a structured RFP
// draft.
func (c *Client) GenerateRFP(ctx context.Context, query string) (*GeneratedRFP, error) {
	text, err := c.generate(ctx, "generate_rfp", generateSystemPrompt, fmt.Sprintf(generateUserPrompt, query))
	if err != nil {
		return nil, err
	}

	var out GeneratedRFP
	if err := json.Unmarshal([]byte(cleanJSON(text)), &out); err != nil {
		return nil, eris.Wrap(err, "extract: parse generated rfp")
	}
	return &out, nil
}
