// Package rag answers questions over indexed meeting transcripts using
// vector retrieval, graph context and the response cache.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/haidang-dev/meeting-insight/errors"
	"github.com/haidang-dev/meeting-insight/internal/domain/repositories"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/cache"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/graphstore"
	"github.com/haidang-dev/meeting-insight/internal/infrastructure/external/vectorstore"
	"github.com/haidang-dev/meeting-insight/pkg/ai"
)

const (
	retrievalTopK      = 8
	graphContextLimit  = 25
	answerSystemPrompt = `You are a meeting assistant. Answer the user's question using ONLY the provided transcript excerpts and knowledge graph facts. If the context does not contain the answer, say so plainly. Be concise.`
)

// VectorStore is the retrieval slice of the vector index.
type VectorStore interface {
	Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]vectorstore.Match, error)
}

// GraphStore provides relationship facts for entities mentioned in the
// retrieved context.
type GraphStore interface {
	Neighbors(ctx context.Context, names []string, limit int) ([]graphstore.NeighborFact, error)
}

// Answer is a chat response plus whether it came from the cache.
type Answer struct {
	Text   string
	Cached bool
}

// Service answers questions over a user's meetings.
type Service interface {
	// ChatAllMeetings answers over every meeting the user owns.
	ChatAllMeetings(ctx context.Context, userID, question string) (*Answer, error)
	// ChatMeeting answers over one meeting, enforcing ownership.
	ChatMeeting(ctx context.Context, userID string, meetingID uuid.UUID, question string) (*Answer, error)
}

type service struct {
	meetings repositories.MeetingRepository
	llm      ai.LLMClient
	vectors  VectorStore
	graph    GraphStore
	cache    *cache.ResponseCache
	logger   *zap.Logger
}

// NewService wires the chat service. graph may be nil; graph context is
// then omitted.
func NewService(
	meetings repositories.MeetingRepository,
	llm ai.LLMClient,
	vectors VectorStore,
	graph GraphStore,
	responseCache *cache.ResponseCache,
	logger *zap.Logger,
) Service {
	return &service{
		meetings: meetings,
		llm:      llm,
		vectors:  vectors,
		graph:    graph,
		cache:    responseCache,
		logger:   logger,
	}
}

func (s *service) ChatAllMeetings(ctx context.Context, userID, question string) (*Answer, error) {
	return s.chat(ctx, userID, question, map[string]interface{}{"userId": userID})
}

func (s *service) ChatMeeting(ctx context.Context, userID string, meetingID uuid.UUID, question string) (*Answer, error) {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("meeting")
		}
		return nil, apperrors.ErrPersistenceFailed(err)
	}
	if !meeting.IsOwnedBy(userID) {
		return nil, apperrors.ErrPermissionDenied("chat with this meeting")
	}

	return s.chat(ctx, userID, question, map[string]interface{}{
		"meetingId": meetingID.String(),
	})
}

func (s *service) chat(ctx context.Context, userID, question string, filter map[string]interface{}) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.ErrInvalidArgument("question is required")
	}

	// Cache keys are scoped per user, so one user's answers never leak to
	// another asking the same question.
	if s.cache != nil {
		if answer, found := s.cache.GetResponse(ctx, userID, question); found {
			return &Answer{Text: answer, Cached: true}, nil
		}
	}

	embeddings, err := s.llm.CreateEmbeddings(ctx, []string{question})
	if err != nil || len(embeddings) == 0 {
		return nil, apperrors.ErrProviderFailed("embeddings", err)
	}

	matches, err := s.vectors.Query(ctx, embeddings[0], retrievalTopK, filter)
	if err != nil {
		return nil, apperrors.ErrProviderFailed("vector store", err)
	}

	contextBlock, names := buildContext(matches)
	graphBlock := s.graphContext(ctx, names)

	userPrompt := fmt.Sprintf("Transcript excerpts:\n%s\n%sQuestion: %s", contextBlock, graphBlock, question)
	answer, err := s.llm.Chat(ctx, answerSystemPrompt, userPrompt)
	if err != nil {
		return nil, apperrors.ErrProviderFailed("llm", err)
	}

	if s.cache != nil {
		s.cache.SetResponse(ctx, userID, question, answer)
	}
	return &Answer{Text: answer}, nil
}

// buildContext renders retrieved chunks and collects speaker names for the
// graph lookup.
func buildContext(matches []vectorstore.Match) (string, []string) {
	if len(matches) == 0 {
		return "(no relevant excerpts found)\n", nil
	}

	var b strings.Builder
	var names []string
	seen := make(map[string]bool)
	for _, m := range matches {
		text, _ := m.Metadata["text"].(string)
		if text == "" {
			continue
		}
		title, _ := m.Metadata["meetingTitle"].(string)
		fmt.Fprintf(&b, "--- %s ---\n%s\n", title, text)

		if speaker, _ := m.Metadata["speaker"].(string); speaker != "" && !seen[speaker] {
			seen[speaker] = true
			names = append(names, speaker)
		}
	}
	return b.String(), names
}

func (s *service) graphContext(ctx context.Context, names []string) string {
	if s.graph == nil || len(names) == 0 {
		return ""
	}
	facts, err := s.graph.Neighbors(ctx, names, graphContextLimit)
	if err != nil {
		// Graph context is additive; retrieval alone still answers.
		if s.logger != nil {
			s.logger.Warn("⚠️ Graph context lookup failed", zap.Error(err))
		}
		return ""
	}
	if len(facts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Knowledge graph facts:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s %s %s\n", f.From, f.Rel, f.To)
	}
	b.WriteString("\n")
	return b.String()
}
