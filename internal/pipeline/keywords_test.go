package pipeline_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"college-buddy/internal/pipeline"
	"college-buddy/internal/pipeline/mocks"
)

func TestKeywordExpander_Expand(t *testing.T) {
	tests := []struct {
		name      string
		intents   []pipeline.Intent
		mockSetup func(*mocks.MockCompletionClient)
		want      []pipeline.IntentKeywords
		wantErr   bool
	}{
		{
			name:    "splits on commas and trims",
			intents: []pipeline.Intent{"Find the registration deadline"},
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("registration, deadline ,course enrollment", nil)
			},
			want: []pipeline.IntentKeywords{
				{
					Intent:   "Find the registration deadline",
					Keywords: pipeline.KeywordSet{"registration", "deadline", "course enrollment"},
				},
			},
		},
		{
			name:    "empty completion yields single empty keyword",
			intents: []pipeline.Intent{"Some intent"},
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", nil)
			},
			want: []pipeline.IntentKeywords{
				{Intent: "Some intent", Keywords: pipeline.KeywordSet{""}},
			},
		},
		{
			name:    "intent order preserved",
			intents: []pipeline.Intent{"first intent", "second intent"},
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, system, user string) (string, error) {
						if strings.Contains(user, "first intent") {
							return "alpha, beta", nil
						}
						return "gamma", nil
					}).
					Times(2)
			},
			want: []pipeline.IntentKeywords{
				{Intent: "first intent", Keywords: pipeline.KeywordSet{"alpha", "beta"}},
				{Intent: "second intent", Keywords: pipeline.KeywordSet{"gamma"}},
			},
		},
		{
			name:    "no intents means no calls",
			intents: nil,
			mockSetup: func(m *mocks.MockCompletionClient) {
				// No mock call expected
			},
			want: []pipeline.IntentKeywords{},
		},
		{
			name:    "completion service error",
			intents: []pipeline.Intent{"intent"},
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", errors.New("timeout"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			completer := mocks.NewMockCompletionClient(ctrl)
			tt.mockSetup(completer)

			expander := pipeline.NewKeywordExpander(completer, 0)
			got, err := expander.Expand(context.Background(), tt.intents)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expand() expected error, got nil")
					return
				}
				if !errors.Is(err, pipeline.ErrCompletionService) {
					t.Errorf("Expand() error = %v, want ErrCompletionService", err)
				}
				return
			}

			if err != nil {
				t.Errorf("Expand() unexpected error: %v", err)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeywordExpander_MineAnswer(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		mockSetup func(*mocks.MockCompletionClient)
		want      pipeline.KeywordSet
		wantErr   bool
	}{
		{
			name:   "mines keywords from answer text",
			answer: "You can declare a major at the registrar's office.",
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, system, user string) (string, error) {
						if !strings.Contains(user, "declare a major") {
							t.Errorf("prompt does not contain the answer text: %q", user)
						}
						return "declare major, registrar, office", nil
					})
			},
			want: pipeline.KeywordSet{"declare major", "registrar", "office"},
		},
		{
			name:   "empty completion yields single empty keyword",
			answer: "answer",
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("  ", nil)
			},
			want: pipeline.KeywordSet{""},
		},
		{
			name:   "completion service error",
			answer: "answer",
			mockSetup: func(m *mocks.MockCompletionClient) {
				m.EXPECT().
					Complete(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", errors.New("unavailable"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			completer := mocks.NewMockCompletionClient(ctrl)
			tt.mockSetup(completer)

			expander := pipeline.NewKeywordExpander(completer, 0)
			got, err := expander.MineAnswer(context.Background(), tt.answer)

			if tt.wantErr {
				if err == nil {
					t.Errorf("MineAnswer() expected error, got nil")
					return
				}
				if !errors.Is(err, pipeline.ErrCompletionService) {
					t.Errorf("MineAnswer() error = %v, want ErrCompletionService", err)
				}
				return
			}

			if err != nil {
				t.Errorf("MineAnswer() unexpected error: %v", err)
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MineAnswer() = %v, want %v", got, tt.want)
			}
		})
	}
}
