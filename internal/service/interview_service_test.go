package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"esgadvisor/internal/cache"
	"esgadvisor/internal/catalog"
	"esgadvisor/internal/model"
)

// --- Test doubles ---

// scriptedOracle returns pre-programmed verdicts in order.
type scriptedOracle struct {
	verdicts     []*model.Verdict
	classifyErr  error
	narrative    string
	summarizeErr error
	calls        int
}

func (o *scriptedOracle) Classify(ctx context.Context, stimulus model.Stimulus, answer string, recent []model.TranscriptEntry) (*model.Verdict, error) {
	if o.classifyErr != nil {
		return nil, o.classifyErr
	}
	if len(o.verdicts) == 0 {
		return &model.Verdict{Dimension: model.DimensionNone, Sufficient: true}, nil
	}
	v := *o.verdicts[o.calls%len(o.verdicts)]
	o.calls++
	return &v, nil
}

func (o *scriptedOracle) Summarize(ctx context.Context, transcript []model.TranscriptEntry) (string, error) {
	if o.summarizeErr != nil {
		return "", o.summarizeErr
	}
	return o.narrative, nil
}

type stubProfileRepo struct {
	records   []*model.ProfileRecord
	appendErr error
}

func (r *stubProfileRepo) Append(ctx context.Context, record *model.ProfileRecord) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.records = append(r.records, record)
	return nil
}

func (r *stubProfileRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.ProfileRecord, error) {
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no record for %s", sessionID)
}

func twoStimulusCatalog() *catalog.Catalog {
	return catalog.New([]model.Stimulus{
		{Text: "Noticia uno", OpeningQuestion: "¿Qué opinas?"},
		{Text: "Noticia dos", OpeningQuestion: "¿Qué opinas?"},
	})
}

func newTestService(t *testing.T, cat *catalog.Catalog, oracle Oracle, repo *stubProfileRepo, maxFollowUps int) (*InterviewService, cache.SessionCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	sessions := cache.NewSessionCache(rdb, time.Hour)
	return NewInterviewService(cat, sessions, repo, oracle, maxFollowUps), sessions
}

func mustStart(t *testing.T, svc *InterviewService) *model.InterviewState {
	t.Helper()
	state, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return state
}

// --- Start ---

func TestStart_InitialState(t *testing.T) {
	svc, _ := newTestService(t, twoStimulusCatalog(), &scriptedOracle{}, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)

	if state.StimulusIndex != 0 {
		t.Errorf("StimulusIndex = %d, want 0", state.StimulusIndex)
	}
	if state.Turn != model.TurnAwaitingFirstAnswer {
		t.Errorf("Turn = %s, want awaiting_first_answer", state.Turn)
	}
	for _, d := range model.Dimensions {
		if state.Scores[d] != 0 {
			t.Errorf("score %s = %d, want 0", d, state.Scores[d])
		}
	}
	if len(state.Transcript) == 0 || state.Transcript[0].Text != catalog.Greeting {
		t.Error("transcript does not open with the analyst greeting")
	}
}

func TestStart_SessionsAreIndependent(t *testing.T) {
	svc, _ := newTestService(t, twoStimulusCatalog(), &scriptedOracle{}, &stubProfileRepo{}, 0)
	a := mustStart(t, svc)
	b := mustStart(t, svc)
	if a.SessionID == b.SessionID {
		t.Fatalf("two sessions share ID %s", a.SessionID)
	}
}

// --- Prompt ---

func TestCurrent_Idempotent(t *testing.T) {
	svc, _ := newTestService(t, twoStimulusCatalog(), &scriptedOracle{}, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)

	first, err := svc.Current(context.Background(), state.SessionID)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	second, _ := svc.Current(context.Background(), state.SessionID)
	if *first != *second {
		t.Errorf("Current() not idempotent: %+v vs %+v", first, second)
	}
	if first.IsFollowUp || first.Question != "¿Qué opinas?" {
		t.Errorf("unexpected opening prompt: %+v", first)
	}
}

func TestCurrent_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t, twoStimulusCatalog(), &scriptedOracle{}, &stubProfileRepo{}, 0)
	if _, err := svc.Current(context.Background(), "itv_missing"); !errors.Is(err, model.ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}

// --- SubmitAnswer ---

// Scenario: an insufficient first answer loops on the same stimulus with
// the oracle's follow-up; the resolving answer earns the follow-up weight
// and advances.
func TestSubmitAnswer_FollowUpLoop(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionEnvironmental, Sufficient: false, FollowUp: "Tell me more?"},
		{Dimension: model.DimensionEnvironmental, Sufficient: true},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()

	resp, err := svc.SubmitAnswer(ctx, state.SessionID, "Short.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.Turn != model.TurnAwaitingFollowUp || resp.StimulusIndex != 0 {
		t.Fatalf("after insufficient answer: turn=%s index=%d", resp.Turn, resp.StimulusIndex)
	}
	if resp.Scores[model.DimensionEnvironmental] != 0 {
		t.Errorf("insufficient turn scored %d", resp.Scores[model.DimensionEnvironmental])
	}

	prompt, err := svc.Current(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if !prompt.IsFollowUp || prompt.Question != "Tell me more?" || prompt.StimulusIndex != 0 {
		t.Fatalf("follow-up prompt = %+v", prompt)
	}

	resp, err = svc.SubmitAnswer(ctx, state.SessionID, "Detailed justification about the ecological transition.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.Turn != model.TurnAwaitingFirstAnswer || resp.StimulusIndex != 1 {
		t.Fatalf("after resolving answer: turn=%s index=%d", resp.Turn, resp.StimulusIndex)
	}
	if resp.Scores[model.DimensionEnvironmental] != FollowUpWeight {
		t.Errorf("Environmental = %d, want follow-up weight %d", resp.Scores[model.DimensionEnvironmental], FollowUpWeight)
	}
}

func TestSubmitAnswer_FirstPassWeight(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionGovernance, Sufficient: true},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)

	resp, err := svc.SubmitAnswer(context.Background(), state.SessionID, "Una opinión bien fundamentada.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.Scores[model.DimensionGovernance] != FirstAnswerWeight {
		t.Errorf("Governance = %d, want %d", resp.Scores[model.DimensionGovernance], FirstAnswerWeight)
	}
}

// Scenario: an empty answer is rejected locally and the session is
// untouched; the next valid call still operates on the original state.
func TestSubmitAnswer_EmptyInput(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionSocial, Sufficient: true},
	}}
	svc, sessions := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := svc.SubmitAnswer(ctx, state.SessionID, input); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("SubmitAnswer(%q) = %v, want ErrInvalidInput", input, err)
		}
	}
	if oracle.calls != 0 {
		t.Errorf("oracle consulted %d times for invalid input", oracle.calls)
	}

	stored, _ := sessions.Get(ctx, state.SessionID)
	if stored.StimulusIndex != 0 || len(stored.Transcript) != len(state.Transcript) {
		t.Error("invalid input mutated the session")
	}

	resp, err := svc.SubmitAnswer(ctx, state.SessionID, "Ahora sí respondo con sustancia.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.StimulusIndex != 1 {
		t.Errorf("index = %d, want 1", resp.StimulusIndex)
	}
}

func TestSubmitAnswer_OracleFailureLeavesStateUntouched(t *testing.T) {
	oracle := &scriptedOracle{classifyErr: fmt.Errorf("%w: 503", model.ErrOracleFailure)}
	svc, sessions := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, state.SessionID, "Una respuesta cualquiera.")
	if !errors.Is(err, model.ErrOracleFailure) {
		t.Fatalf("error = %v, want ErrOracleFailure", err)
	}

	stored, _ := sessions.Get(ctx, state.SessionID)
	if len(stored.Transcript) != len(state.Transcript) {
		t.Error("failed turn appended to the transcript")
	}
	if stored.Turn != model.TurnAwaitingFirstAnswer || stored.StimulusIndex != 0 {
		t.Errorf("state mutated: turn=%s index=%d", stored.Turn, stored.StimulusIndex)
	}
}

func TestSubmitAnswer_MalformedVerdicts(t *testing.T) {
	cases := []struct {
		name    string
		verdict *model.Verdict
	}{
		{"insufficient without follow-up", &model.Verdict{Dimension: model.DimensionRisk, Sufficient: false}},
		{"unknown dimension", &model.Verdict{Dimension: "Financial", Sufficient: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oracle := &scriptedOracle{verdicts: []*model.Verdict{tc.verdict}}
			svc, sessions := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
			state := mustStart(t, svc)

			_, err := svc.SubmitAnswer(context.Background(), state.SessionID, "Respuesta.")
			if !errors.Is(err, model.ErrMalformedVerdict) {
				t.Fatalf("error = %v, want ErrMalformedVerdict", err)
			}
			stored, _ := sessions.Get(context.Background(), state.SessionID)
			if len(stored.Transcript) != len(state.Transcript) {
				t.Error("malformed verdict mutated the session")
			}
		})
	}
}

func TestSubmitAnswer_NoneDimensionAdvancesWithoutScore(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: "unclear", Sufficient: true},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)

	resp, err := svc.SubmitAnswer(context.Background(), state.SessionID, "Pues no sabría decir.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.StimulusIndex != 1 {
		t.Errorf("index = %d, want 1", resp.StimulusIndex)
	}
	for _, d := range model.Dimensions {
		if resp.Scores[d] != 0 {
			t.Errorf("score %s = %d, want 0", d, resp.Scores[d])
		}
	}
}

func TestSubmitAnswer_CompletionAndInvalidTransitions(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionSocial, Sufficient: true},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()

	var resp *model.SubmitAnswerResponse
	var err error
	lastIndex := 0
	for i := 0; i < 2; i++ {
		resp, err = svc.SubmitAnswer(ctx, state.SessionID, "Respuesta suficiente y detallada.")
		if err != nil {
			t.Fatalf("SubmitAnswer() error = %v", err)
		}
		if resp.StimulusIndex < lastIndex {
			t.Fatalf("stimulus index went backwards: %d -> %d", lastIndex, resp.StimulusIndex)
		}
		lastIndex = resp.StimulusIndex
	}

	if resp.Turn != model.TurnComplete || resp.StimulusIndex != 2 {
		t.Fatalf("after final answer: turn=%s index=%d", resp.Turn, resp.StimulusIndex)
	}
	if resp.NextPrompt != nil {
		t.Error("completed interview still offers a prompt")
	}

	if _, err := svc.SubmitAnswer(ctx, state.SessionID, "¿Sigo?"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("SubmitAnswer after completion = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Current(ctx, state.SessionID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("Current after completion = %v, want ErrInvalidTransition", err)
	}
}

func TestSubmitAnswer_FollowUpCap(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionRisk, Sufficient: false, FollowUp: "¿Seguro?"},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 1)
	state := mustStart(t, svc)
	ctx := context.Background()

	resp, err := svc.SubmitAnswer(ctx, state.SessionID, "Eh.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.Turn != model.TurnAwaitingFollowUp {
		t.Fatalf("turn = %s, want awaiting_follow_up", resp.Turn)
	}

	// The budget is spent; a second insufficient answer moves on without
	// a score increment.
	resp, err = svc.SubmitAnswer(ctx, state.SessionID, "Eh otra vez.")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if resp.Turn != model.TurnAwaitingFirstAnswer || resp.StimulusIndex != 1 {
		t.Fatalf("after cap: turn=%s index=%d", resp.Turn, resp.StimulusIndex)
	}
	if resp.Scores[model.DimensionRisk] != 0 {
		t.Errorf("Risk = %d, want 0", resp.Scores[model.DimensionRisk])
	}
}

func TestSubmitAnswer_UnboundedFollowUpsByDefault(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionRisk, Sufficient: false, FollowUp: "¿Y bien?"},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		resp, err := svc.SubmitAnswer(ctx, state.SessionID, "Eh.")
		if err != nil {
			t.Fatalf("SubmitAnswer() error = %v", err)
		}
		if resp.Turn != model.TurnAwaitingFollowUp || resp.StimulusIndex != 0 {
			t.Fatalf("iteration %d: turn=%s index=%d", i, resp.Turn, resp.StimulusIndex)
		}
	}
}

// --- Finalize ---

func completeInterview(t *testing.T, svc *InterviewService, sessionID string, stimuli int) {
	t.Helper()
	for i := 0; i < stimuli; i++ {
		if _, err := svc.SubmitAnswer(context.Background(), sessionID, "Respuesta suficiente."); err != nil {
			t.Fatalf("SubmitAnswer() error = %v", err)
		}
	}
}

func TestFinalize_BeforeCompletion(t *testing.T) {
	svc, _ := newTestService(t, twoStimulusCatalog(), &scriptedOracle{}, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	if _, err := svc.Finalize(context.Background(), state.SessionID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestFinalize_ParsesNarrativeAndArchives(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts:  []*model.Verdict{{Dimension: model.DimensionEnvironmental, Sufficient: true}},
		narrative: "Ambiental: 40, Social: 20, Gobernanza: 10, Riesgo: 5",
	}
	repo := &stubProfileRepo{}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, repo, 0)
	state := mustStart(t, svc)
	ctx := context.Background()
	completeInterview(t, svc, state.SessionID, 2)

	profile, err := svc.Finalize(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	want := map[model.Dimension]int{
		model.DimensionEnvironmental: 40,
		model.DimensionSocial:        20,
		model.DimensionGovernance:    10,
		model.DimensionRisk:          5,
	}
	for d, w := range want {
		if profile.Scores[d] != w {
			t.Errorf("%s = %d, want %d", d, profile.Scores[d], w)
		}
	}
	if profile.Narrative != oracle.narrative {
		t.Error("narrative not retained on the profile")
	}

	if len(repo.records) != 1 {
		t.Fatalf("repo holds %d records, want 1", len(repo.records))
	}
	if len(repo.records[0].Answers) != 2 {
		t.Errorf("record holds %d answers, want 2", len(repo.records[0].Answers))
	}

	// The session is archived; a second finalize cannot double-write.
	if _, err := svc.Finalize(ctx, state.SessionID); !errors.Is(err, model.ErrSessionNotFound) {
		t.Errorf("second Finalize = %v, want ErrSessionNotFound", err)
	}
	if len(repo.records) != 1 {
		t.Errorf("second finalize appended a record")
	}
}

// Scenario: the narrative is missing one label; finalize fails naming the
// dimension and the session survives for a retry.
func TestFinalize_ParseFailureKeepsSession(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts:  []*model.Verdict{{Dimension: model.DimensionSocial, Sufficient: true}},
		narrative: "Ambiental: 40, Social: 20, Riesgo: 5",
	}
	repo := &stubProfileRepo{}
	svc, sessions := newTestService(t, twoStimulusCatalog(), oracle, repo, 0)
	state := mustStart(t, svc)
	ctx := context.Background()
	completeInterview(t, svc, state.SessionID, 2)

	_, err := svc.Finalize(ctx, state.SessionID)
	var parseErr *model.ProfileParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ProfileParseError", err)
	}
	if len(parseErr.Missing) != 1 || parseErr.Missing[0] != model.DimensionGovernance {
		t.Errorf("Missing = %v, want [Governance]", parseErr.Missing)
	}
	if len(repo.records) != 0 {
		t.Error("record persisted despite parse failure")
	}
	if _, err := sessions.Get(ctx, state.SessionID); err != nil {
		t.Errorf("session gone after parse failure: %v", err)
	}

	// A corrected narrative makes the retry succeed.
	oracle.narrative = "Ambiental: 40, Social: 20, Gobernanza: 10, Riesgo: 5"
	if _, err := svc.Finalize(ctx, state.SessionID); err != nil {
		t.Errorf("retry Finalize() error = %v", err)
	}
}

func TestFinalize_PersistenceFailureKeepsProfile(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts:  []*model.Verdict{{Dimension: model.DimensionRisk, Sufficient: true}},
		narrative: "Ambiental: 0, Social: 0, Gobernanza: 0, Riesgo: 20",
	}
	repo := &stubProfileRepo{appendErr: errors.New("mongo down")}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, repo, 0)
	state := mustStart(t, svc)
	ctx := context.Background()
	completeInterview(t, svc, state.SessionID, 2)

	profile, err := svc.Finalize(ctx, state.SessionID)
	if err == nil {
		t.Fatal("Finalize() error = nil, want persistence failure")
	}
	if profile == nil {
		t.Fatal("persistence failure voided the profile")
	}
	if profile.Scores[model.DimensionRisk] != 20 {
		t.Errorf("Risk = %d, want 20", profile.Scores[model.DimensionRisk])
	}
}

func TestFinalize_SummarizeFailureSurfaces(t *testing.T) {
	oracle := &scriptedOracle{
		verdicts:     []*model.Verdict{{Dimension: model.DimensionRisk, Sufficient: true}},
		summarizeErr: fmt.Errorf("%w: deadline", model.ErrOracleTimeout),
	}
	svc, sessions := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()
	completeInterview(t, svc, state.SessionID, 2)

	if _, err := svc.Finalize(ctx, state.SessionID); !errors.Is(err, model.ErrOracleTimeout) {
		t.Fatalf("error = %v, want ErrOracleTimeout", err)
	}
	if _, err := sessions.Get(ctx, state.SessionID); err != nil {
		t.Errorf("session gone after summarize failure: %v", err)
	}
}

// --- Transcript ---

func TestTranscript_RecordsBothSpeakers(t *testing.T) {
	oracle := &scriptedOracle{verdicts: []*model.Verdict{
		{Dimension: model.DimensionSocial, Sufficient: false, FollowUp: "¿Por qué?"},
	}}
	svc, _ := newTestService(t, twoStimulusCatalog(), oracle, &stubProfileRepo{}, 0)
	state := mustStart(t, svc)
	ctx := context.Background()

	if _, err := svc.SubmitAnswer(ctx, state.SessionID, "Porque sí."); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	transcript, err := svc.Transcript(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	last := transcript[len(transcript)-1]
	if last.Speaker != model.SpeakerAnalyst || last.Text != "¿Por qué?" {
		t.Errorf("last entry = %+v, want the analyst follow-up", last)
	}
	penultimate := transcript[len(transcript)-2]
	if penultimate.Speaker != model.SpeakerUser || penultimate.Text != "Porque sí." {
		t.Errorf("penultimate entry = %+v, want the user answer", penultimate)
	}
}
