package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/civicdata/corroborate/internal/model"
)

func sourceText(idx, tier int, text string) model.SourceText {
	return model.SourceText{
		Index:  idx,
		Source: model.Source{URL: "https://example.com/article", Tier: tier},
		Text:   text,
		Origin: model.OriginLocalArchive,
	}
}

func TestHeuristicScorer_NameDateCityReachesVerified(t *testing.T) {
	rec := &model.Record{
		ID:           "T3-041",
		Date:         "2025-07-10",
		State:        "CA",
		City:         "Camarillo area",
		IncidentType: model.IncidentWrongfulDetention,
		VictimName:   "George Retes",
	}
	text := "George Retes was taken into custody on July 10 outside a business " +
		"in Camarillo, witnesses told reporters. His family is seeking answers."

	s := NewHeuristicScorer()
	judgment, err := s.Score(context.Background(), rec, []model.SourceText{sourceText(0, 3, text)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// name exact (30) + date exact (25) + city (15) = 70
	if judgment.Score != 70 {
		t.Errorf("Expected score 70, got %d (%s)", judgment.Score, judgment.Sources[0].Reason)
	}
	if got := model.VerdictFromScore(judgment.Score); got != model.VerdictVerified {
		t.Errorf("Expected verified verdict, got %s", got)
	}
	if !judgment.Sources[0].Relevant {
		t.Error("Expected source judged relevant")
	}
}

func TestHeuristicScorer_UnrelatedSource(t *testing.T) {
	rec := &model.Record{
		ID:           "T3-042",
		Date:         "2025-07-10",
		State:        "CA",
		City:         "Camarillo",
		IncidentType: model.IncidentWrongfulDetention,
		VictimName:   "George Retes",
	}
	text := "The city council approved a new budget on Tuesday following a lengthy debate."

	s := NewHeuristicScorer()
	judgment, err := s.Score(context.Background(), rec, []model.SourceText{sourceText(0, 3, text)})
	if err != nil {
		t.Fatal(err)
	}
	if judgment.Sources[0].Relevant {
		t.Errorf("Expected unrelated source, score %d", judgment.Sources[0].Score)
	}
	if judgment.Score >= relevanceThreshold {
		t.Errorf("Expected aggregate below threshold, got %d", judgment.Score)
	}
	if !strings.Contains(judgment.Reasoning, "no source judged relevant") {
		t.Errorf("Unexpected reasoning: %s", judgment.Reasoning)
	}
}

func TestHeuristicScorer_CorroborationBonus(t *testing.T) {
	rec := &model.Record{
		ID:           "T1-D-002",
		Date:         "2025-06-20",
		State:        "Texas",
		City:         "Houston",
		IncidentType: model.IncidentDeathInCustody,
		VictimName:   "Carlos Mendez",
	}
	strong := "Carlos Mendez died June 20 at a detention facility near Houston. " +
		"ICE confirmed the death and said the medical examiner will determine the cause of death. " +
		"He had been in custody for three weeks and was found unresponsive in his cell."
	weaker := "Advocates gathered in Houston, Texas after Mendez died in ICE custody on June 20. " +
		"The death is the third at the facility this year."

	s := NewHeuristicScorer()
	judgment, err := s.Score(context.Background(), rec, []model.SourceText{
		sourceText(0, 2, strong),
		sourceText(1, 1, weaker),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(judgment.Sources) != 2 {
		t.Fatalf("Expected 2 source judgments, got %d", len(judgment.Sources))
	}
	for i, sj := range judgment.Sources {
		if !sj.Relevant {
			t.Fatalf("Expected source %d relevant, score %d (%s)", i, sj.Score, sj.Reason)
		}
	}

	bestAlone, err := s.Score(context.Background(), rec, []model.SourceText{sourceText(0, 2, strong)})
	if err != nil {
		t.Fatal(err)
	}
	if judgment.Score <= bestAlone.Score && judgment.Score < 100 {
		t.Errorf("Expected corroboration bonus: alone %d, together %d", bestAlone.Score, judgment.Score)
	}
	if judgment.Score > 100 {
		t.Errorf("Score exceeds 100: %d", judgment.Score)
	}
}

func TestHeuristicScorer_NoSources(t *testing.T) {
	s := NewHeuristicScorer()
	judgment, err := s.Score(context.Background(), &model.Record{ID: "X"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if judgment.Score != 0 {
		t.Errorf("Expected zero score, got %d", judgment.Score)
	}
}

func TestHeuristicScorer_UnnamedVictimGetsNameCredit(t *testing.T) {
	rec := &model.Record{
		ID:           "T4-020",
		Date:         "2025-05-02",
		State:        "Florida",
		City:         "Tampa",
		IncidentType: model.IncidentMassRaid,
		VictimName:   "Unknown",
	}
	text := "Federal agents raided a construction site in Tampa, Florida on May 2, " +
		"arresting dozens of workers. Employers said the operation lasted hours."

	s := NewHeuristicScorer()
	judgment, err := s.Score(context.Background(), rec, []model.SourceText{sourceText(0, 3, text)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(judgment.Sources[0].Reason, "name: n/a") {
		t.Errorf("Expected name treated as n/a, got %s", judgment.Sources[0].Reason)
	}
	if got := model.VerdictFromScore(judgment.Score); got != model.VerdictVerified {
		t.Errorf("Expected verified for fully corroborated raid, got %s (score %d, %s)",
			got, judgment.Score, judgment.Sources[0].Reason)
	}
}

func TestHeuristicScorer_NearbyDateSuggestsCorrection(t *testing.T) {
	rec := &model.Record{
		ID:           "T2-S-009",
		Date:         "2025-07-10",
		State:        "CA",
		City:         "Camarillo",
		IncidentType: model.IncidentShootingByAgent,
		VictimName:   "George Retes",
	}
	text := "George Retes was shot by a federal agent in Camarillo on July 12, " +
		"officials said. He was wounded and taken to a hospital."

	s := NewHeuristicScorer()
	judgment, err := s.Score(context.Background(), rec, []model.SourceText{sourceText(0, 3, text)})
	if err != nil {
		t.Fatal(err)
	}
	if len(judgment.Corrections) != 1 {
		t.Fatalf("Expected a date correction, got %d corrections", len(judgment.Corrections))
	}
	c := judgment.Corrections[0]
	if c.Field != "date" || c.Current != "2025-07-10" {
		t.Errorf("Unexpected correction: %+v", c)
	}
	if !strings.Contains(c.ShouldBe, "july 12") {
		t.Errorf("Expected suggested date from article, got %q", c.ShouldBe)
	}
}

func TestAgencyMentioned(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"ICE agents conducted the operation", true},
		{"agents from Immigration and Customs Enforcement arrived", true},
		{"Border Patrol confirmed the arrest", true},
		// Two secondary terms
		{"he was detained during a deportation proceeding", true},
		// One secondary term is not enough
		{"he was detained overnight", false},
		// "ice" must not hide inside ordinary words
		{"police officers responded to a justice department notice", false},
		{"the service was held at his office", false},
	}
	for _, tc := range cases {
		if got := agencyMentioned(strings.ToLower(tc.text)); got != tc.want {
			t.Errorf("agencyMentioned(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestStateInText(t *testing.T) {
	cases := []struct {
		state string
		text  string
		want  bool
	}{
		{"CA", "the incident happened in Camarillo, CA on Thursday", true},
		{"CA", "officials across California responded", true},
		// The lowercase letters of "Camarillo" must not satisfy "CA"
		{"CA", "the incident happened in Camarillo on Thursday", false},
		{"Texas", "a Houston, Texas facility", true},
		{"TX", "a Houston, Texas facility", true},
		{"", "anything", false},
	}
	for _, tc := range cases {
		lower := strings.ToLower(tc.text)
		if got := stateInText(tc.state, tc.text, lower); got != tc.want {
			t.Errorf("stateInText(%q, %q) = %v, want %v", tc.state, tc.text, got, tc.want)
		}
	}
}

func TestCityInText(t *testing.T) {
	cases := []struct {
		city string
		text string
		want bool
	}{
		{"Camarillo area", "protesters gathered in camarillo on friday", true},
		{"Los Angeles / Paramount", "the raid in paramount drew a crowd", true},
		{"Ventura County", "deputies in ventura assisted", true},
		{"Tampa", "the operation in miami", false},
		{"", "anything", false},
	}
	for _, tc := range cases {
		if got := cityInText(tc.city, tc.text); got != tc.want {
			t.Errorf("cityInText(%q, %q) = %v, want %v", tc.city, tc.text, got, tc.want)
		}
	}
}

func TestTermInText(t *testing.T) {
	cases := []struct {
		term string
		text string
		want bool
	}{
		{"ice", "ice agents arrived", true},
		{"ice", "the police arrived", false},
		{"raid", "after the raids ended", true}, // Plural via suffix
		{"raid", "he was afraid", false},
		{"border patrol", "a border patrol unit", true},
		{"detention", "a detention facility", true},
	}
	for _, tc := range cases {
		if got := termInText(tc.term, tc.text); got != tc.want {
			t.Errorf("termInText(%q, %q) = %v, want %v", tc.term, tc.text, got, tc.want)
		}
	}
}
