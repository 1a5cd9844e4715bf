// Package bot orchestrates one turn end to end: query understanding, plan
// selection and execution, validation, context updates and transport I/O.
// Each inbound message runs on its own goroutine.
package bot

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"askbot/internal/catalog"
	"askbot/internal/convo"
	"askbot/internal/feedback"
	"askbot/internal/logging"
	"askbot/internal/plan"
	"askbot/internal/query"
	"askbot/internal/respond"
)

// ApologyMessage ships when the pipeline fails outright. The worst outcome a
// user ever sees.
const ApologyMessage = "Sorry, something went wrong on my end while answering that. Please try again in a moment."

var greetings = []string{
	"Hi! I can help with hackathon judging: setting up criteria, inviting judges, scoring, results and more. What would you like to know?",
	"Hello! Ask me anything about running judging for your hackathon.",
	"Hey there! I'm here to help with judging setup, judge invitations, scoring and results. What's on your mind?",
	"Hi! Need a hand with hackathon judging? Ask away.",
}

// Bot wires the pipeline components together and drives them per message.
type Bot struct {
	catalog   *catalog.Catalog
	processor *query.Processor
	selector  *plan.Selector
	executor  *plan.Executor
	validator *respond.Validator
	contexts  *convo.Store
	feedback  *feedback.Store // may be nil

	greetIdx atomic.Uint64
}

// New creates the orchestrator. feedbackStore may be nil.
func New(cat *catalog.Catalog, processor *query.Processor, selector *plan.Selector, executor *plan.Executor,
	validator *respond.Validator, contexts *convo.Store, feedbackStore *feedback.Store) *Bot {
	return &Bot{
		catalog:   cat,
		processor: processor,
		selector:  selector,
		executor:  executor,
		validator: validator,
		contexts:  contexts,
		feedback:  feedbackStore,
	}
}

// HandleMessage runs one full turn for a user and returns the reply text.
// It never returns an empty reply; failures degrade to the apology message.
func (b *Bot) HandleMessage(ctx context.Context, userID, text string) string {
	c := b.contexts.Get(userID)

	pq, err := b.processor.Process(ctx, text, c)
	if err != nil {
		logging.Get(logging.CategoryPipeline).Error("query processing failed for user %s: %v", userID, err)
		return ApologyMessage
	}

	// Greetings bypass planning entirely.
	if pq.Intent.Type == query.IntentGreeting {
		reply := b.nextGreeting()
		b.finishTurn(c, pq, reply, "")
		return reply
	}

	if pq.Intent.Type == query.IntentFeedback {
		b.recordFeedback(c, pq)
	}

	p := b.selector.Select(ctx, pq)

	result, err := b.executor.Execute(ctx, p, pq, plan.Turn{Summary: c.Summary(), Phase: c.Phase()})
	if err != nil {
		logging.Get(logging.CategoryExecutor).Error("plan execution failed for user %s: %v", userID, err)
		return ApologyMessage
	}

	reply, validation := b.validator.Validate(result.Text, b.scenarioFor(result.ScenarioID), pq.Intent.Type, pq.Entities)
	if !validation.Acceptable {
		logging.Validator("shipping response with issues: %v", validation.Issues)
	}

	b.finishTurn(c, pq, reply, result.ScenarioID)
	return reply
}

// Run serves messages from the transport until ctx is cancelled. Each
// message is handled on its own goroutine; a typing signal is emitted while
// the turn runs.
func (b *Bot) Run(ctx context.Context, transport Transport) error {
	messages := make(chan Message, 16)

	var wg sync.WaitGroup
	pollErr := make(chan error, 1)

	go func() {
		pollErr <- transport.Poll(ctx, messages)
		close(messages)
	}()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				wg.Wait()
				return <-pollErr
			}
			wg.Add(1)
			go func(m Message) {
				defer wg.Done()
				transport.Typing(ctx, m.ChatID)
				reply := b.HandleMessage(ctx, m.UserID, m.Text)
				if err := transport.Send(ctx, m.ChatID, reply); err != nil {
					logging.Get(logging.CategoryTransport).Error("failed to send reply to chat %s: %v", m.ChatID, err)
				}
			}(msg)
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
	}
}

// scenarioFor resolves a scenario id for the validator; nil when the answer
// did not come from the catalog.
func (b *Bot) scenarioFor(scenarioID string) *catalog.Scenario {
	if scenarioID == "" {
		return nil
	}
	if s, ok := b.catalog.ByID(scenarioID); ok {
		return &s
	}
	return nil
}

// finishTurn records the Q/A pair, folds in inferences and notifies the
// store's batch counter.
func (b *Bot) finishTurn(c *convo.Context, pq *query.ProcessedQuery, reply, scenarioID string) {
	c.RecordTurn(pq.CleanedQuery, reply, scenarioID)
	c.UpdateFromTurn(pq.CleanedQuery, pq.Entities, pq.Intent.Type)
	b.contexts.TurnRecorded()
}

// recordFeedback writes a feedback entry keyed to the previous answer.
func (b *Bot) recordFeedback(c *convo.Context, pq *query.ProcessedQuery) {
	if b.feedback == nil {
		return
	}

	prevAnswer, _ := c.LastAnswer()
	category := feedback.CategoryNeutral
	lower := pq.CleanedQuery
	switch {
	case containsAny(lower, "thanks", "great", "helpful", "perfect", "awesome"):
		category = feedback.CategoryPositive
	case containsAny(lower, "wrong", "not helpful", "useless", "bad"):
		category = feedback.CategoryNegative
	}

	if _, err := b.feedback.Record(c.UserID, pq.CleanedQuery, prevAnswer, category, pq.OriginalQuery); err != nil {
		logging.Get(logging.CategoryFeedback).Warn("feedback write failed: %v", err)
	}
}

func (b *Bot) nextGreeting() string {
	n := b.greetIdx.Add(1)
	return greetings[int(n-1)%len(greetings)]
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
