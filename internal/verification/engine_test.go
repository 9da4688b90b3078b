package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

const sectionEmployment = id.SectionID("employment")

// fakePageIndex stands in for the document store's weak-reference hook.
type fakePageIndex struct {
	missing map[id.PageID]bool
}

func (f *fakePageIndex) PageExists(_ context.Context, pageID id.PageID) bool {
	return !f.missing[pageID]
}

type EngineSuite struct {
	suite.Suite
	engine *Engine
	pages  *fakePageIndex
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.pages = &fakePageIndex{missing: make(map[id.PageID]bool)}
	s.engine = NewEngine(NewInMemoryStore(), s.pages)
	s.ctx = context.Background()
}

func (s *EngineSuite) instantiate() *EvidenceModule {
	m, err := s.engine.Instantiate(s.ctx, "Payslip #1", "payslip", sectionEmployment, false)
	s.Require().NoError(err)
	return m
}

func (s *EngineSuite) extract(moduleID id.ModuleID, fields []ExtractedField, issues []Issue) *EvidenceModule {
	m, err := s.engine.AcceptExtraction(s.ctx, moduleID, fields, issues)
	s.Require().NoError(err)
	return m
}

func twoFields() []ExtractedField {
	return []ExtractedField{
		{Key: "employer_name", Value: "Acme Ltd", Editable: true, Source: FieldSource{PageID: id.NewPageID()}},
		{Key: "gross_pay", Value: "2100.00", Editable: true, Source: FieldSource{PageID: id.NewPageID()}},
	}
}

func (s *EngineSuite) TestAcceptExtraction() {
	s.Run("clean extraction lands in extracted", func() {
		m := s.instantiate()
		got := s.extract(m.ID, twoFields(), nil)
		s.Equal(ModuleStatusExtracted, got.Status)
		s.Equal(FieldStatusUnverified, got.Fields[0].Status)
	})

	s.Run("unresolved warning lands in needs_review", func() {
		m := s.instantiate()
		got := s.extract(m.ID, twoFields(), []Issue{
			{ID: "iss-1", Severity: SeverityWarning, Message: "low confidence", FieldKey: "gross_pay"},
		})
		s.Equal(ModuleStatusNeedsReview, got.Status)
	})

	s.Run("re-extraction replaces fields wholesale", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		got := s.extract(m.ID, []ExtractedField{{Key: "employer_name", Value: "Other"}}, nil)
		s.Require().Len(got.Fields, 1)
		s.Equal("Other", got.Fields[0].Value)
		s.Equal(ModuleStatusExtracted, got.Status)
	})

	s.Run("empty field key is rejected", func() {
		m := s.instantiate()
		_, err := s.engine.AcceptExtraction(s.ctx, m.ID, []ExtractedField{{Key: "  "}}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown module fails", func() {
		_, err := s.engine.AcceptExtraction(s.ctx, id.NewModuleID(), twoFields(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EngineSuite) TestSetFieldVerification() {
	s.Run("edited requires a value", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		_, err := s.engine.SetFieldVerification(s.ctx, m.ID, "gross_pay", FieldStatusEdited, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("edited flips provenance to manually entered", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		value := "2200.00"
		got, err := s.engine.SetFieldVerification(s.ctx, m.ID, "gross_pay", FieldStatusEdited, &value)
		s.Require().NoError(err)
		field := got.FieldByKey("gross_pay")
		s.Equal("2200.00", field.Value)
		s.True(field.Source.ManuallyEntered)
		// The page reference stays on the record for audit.
		s.False(field.Source.PageID.IsNil())
	})

	s.Run("editing a non-editable field fails", func() {
		m := s.instantiate()
		s.extract(m.ID, []ExtractedField{{Key: "document_number", Editable: false}}, nil)
		value := "X123"
		_, err := s.engine.SetFieldVerification(s.ctx, m.ID, "document_number", FieldStatusEdited, &value)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("confirming clears info and warning issues keyed to the field", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), []Issue{
			{ID: "iss-warn", Severity: SeverityWarning, FieldKey: "gross_pay"},
			{ID: "iss-err", Severity: SeverityError, FieldKey: "gross_pay"},
		})
		got, err := s.engine.SetFieldVerification(s.ctx, m.ID, "gross_pay", FieldStatusConfirmed, nil)
		s.Require().NoError(err)
		byID := issuesByID(got.Issues)
		s.True(byID["iss-warn"].Resolved)
		s.False(byID["iss-err"].Resolved, "error issues need an explicit resolve")
		s.Equal(ModuleStatusNeedsReview, got.Status)
	})

	s.Run("unknown field fails", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		_, err := s.engine.SetFieldVerification(s.ctx, m.ID, "nope", FieldStatusConfirmed, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EngineSuite) TestResolveIssue() {
	m := s.instantiate()
	s.extract(m.ID, twoFields(), []Issue{
		{ID: "iss-err", Severity: SeverityError, Message: "date mismatch"},
	})
	got, err := s.engine.ResolveIssue(s.ctx, m.ID, "iss-err")
	s.Require().NoError(err)
	s.True(got.Issues[0].Resolved)
	s.Equal(ModuleStatusExtracted, got.Status)

	_, err = s.engine.ResolveIssue(s.ctx, m.ID, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *EngineSuite) TestConfirmReview() {
	s.Run("fails while a field is unverified", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		_, err := s.engine.SetFieldVerification(s.ctx, m.ID, "employer_name", FieldStatusConfirmed, nil)
		s.Require().NoError(err)
		_, err = s.engine.ConfirmReview(s.ctx, m.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeIncompleteReview))
	})

	s.Run("fails before any extraction", func() {
		m := s.instantiate()
		_, err := s.engine.ConfirmReview(s.ctx, m.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("succeeds once every field is settled", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		_, err := s.engine.SetFieldVerification(s.ctx, m.ID, "employer_name", FieldStatusConfirmed, nil)
		s.Require().NoError(err)
		_, err = s.engine.SetFieldVerification(s.ctx, m.ID, "gross_pay", FieldStatusRejected, nil)
		s.Require().NoError(err)

		got, err := s.engine.ConfirmReview(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(ModuleStatusReviewed, got.Status)

		_, err = s.engine.ConfirmReview(s.ctx, m.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation), "a reviewed module cannot be re-confirmed")
	})
}

func (s *EngineSuite) TestInvalidateConsumer() {
	s.Run("reviewed module drops to stale", func() {
		m := s.instantiate()
		fields := twoFields()
		s.extract(m.ID, fields, nil)
		for _, f := range fields {
			_, err := s.engine.SetFieldVerification(s.ctx, m.ID, f.Key, FieldStatusConfirmed, nil)
			s.Require().NoError(err)
		}
		_, err := s.engine.ConfirmReview(s.ctx, m.ID)
		s.Require().NoError(err)

		s.Require().NoError(s.engine.InvalidateConsumer(s.ctx, sectionEmployment, false))
		got, err := s.engine.GetModule(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(ModuleStatusStale, got.Status)
		s.True(got.NeedsReanalysis)
	})

	s.Run("unreviewed module keeps its status but flags re-analysis", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		s.Require().NoError(s.engine.InvalidateConsumer(s.ctx, sectionEmployment, false))
		got, err := s.engine.GetModule(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal(ModuleStatusExtracted, got.Status)
		s.True(got.NeedsReanalysis)
	})

	s.Run("re-extraction clears the re-analysis flag", func() {
		m := s.instantiate()
		s.extract(m.ID, twoFields(), nil)
		s.Require().NoError(s.engine.InvalidateConsumer(s.ctx, sectionEmployment, false))
		got := s.extract(m.ID, twoFields(), nil)
		s.False(got.NeedsReanalysis)
	})

	s.Run("assessment invalidation only touches the assessment module", func() {
		sectionModule := s.instantiate()
		assessment, err := s.engine.Instantiate(s.ctx, "Case assessment", "assessment", "", true)
		s.Require().NoError(err)

		s.Require().NoError(s.engine.InvalidateConsumer(s.ctx, "", true))

		gotSection, err := s.engine.GetModule(s.ctx, sectionModule.ID)
		s.Require().NoError(err)
		s.False(gotSection.NeedsReanalysis)
		gotAssessment, err := s.engine.GetModule(s.ctx, assessment.ID)
		s.Require().NoError(err)
		s.True(gotAssessment.NeedsReanalysis)
	})
}

func (s *EngineSuite) TestStaleFieldFlags() {
	s.Run("removed pages flag their fields stale", func() {
		m := s.instantiate()
		fields := twoFields()
		s.extract(m.ID, fields, nil)

		s.engine.FlagStalePages(s.ctx, []id.PageID{fields[0].Source.PageID})
		got, err := s.engine.GetModule(s.ctx, m.ID)
		s.Require().NoError(err)
		s.True(got.FieldByKey("employer_name").Stale)
		s.False(got.FieldByKey("gross_pay").Stale)
	})

	s.Run("reads revalidate weak page references", func() {
		m := s.instantiate()
		fields := twoFields()
		s.extract(m.ID, fields, nil)

		s.pages.missing[fields[1].Source.PageID] = true
		got, err := s.engine.GetModule(s.ctx, m.ID)
		s.Require().NoError(err)
		s.True(got.FieldByKey("gross_pay").Stale)
	})

	s.Run("manually entered fields never go stale", func() {
		m := s.instantiate()
		fields := twoFields()
		s.extract(m.ID, fields, nil)
		value := "300.00"
		_, err := s.engine.SetFieldVerification(s.ctx, m.ID, "gross_pay", FieldStatusEdited, &value)
		s.Require().NoError(err)

		s.pages.missing[fields[1].Source.PageID] = true
		got, err := s.engine.GetModule(s.ctx, m.ID)
		s.Require().NoError(err)
		s.False(got.FieldByKey("gross_pay").Stale)
	})
}

func (s *EngineSuite) TestSources() {
	m := s.instantiate()
	groupID := id.NewGroupID()

	s.engine.AttachSource(s.ctx, sectionEmployment, false, groupID)
	s.engine.AttachSource(s.ctx, sectionEmployment, false, groupID)
	got, err := s.engine.GetModule(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal([]id.GroupID{groupID}, got.Sources, "attach is idempotent")

	s.engine.DetachSource(s.ctx, sectionEmployment, false, groupID)
	got, err = s.engine.GetModule(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Empty(got.Sources)
}

func (s *EngineSuite) TestConsumerListings() {
	employment := s.instantiate()
	finance, err := s.engine.Instantiate(s.ctx, "Bank Statement", "bank_statement", "finances", false)
	s.Require().NoError(err)
	assessment, err := s.engine.Instantiate(s.ctx, "Case assessment", "assessment", "", true)
	s.Require().NoError(err)

	s.Run("section listing keeps instantiation order and excludes others", func() {
		second, err := s.engine.Instantiate(s.ctx, "Payslip #2", "payslip", sectionEmployment, false)
		s.Require().NoError(err)

		got, err := s.engine.ModulesBySection(s.ctx, sectionEmployment)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(employment.ID, got[0].ID)
		s.Equal(second.ID, got[1].ID)
	})

	s.Run("assessment listing excludes section modules", func() {
		got, err := s.engine.AssessmentModules(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(assessment.ID, got[0].ID)
	})

	s.Run("unknown section is empty", func() {
		got, err := s.engine.ModulesBySection(s.ctx, "relationship")
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("section listing refreshes stale flags", func() {
		gone := id.NewPageID()
		s.extract(finance.ID, []ExtractedField{
			{Key: "closing_balance", Value: "1200.00", Editable: true, Source: FieldSource{PageID: gone}},
		}, nil)
		s.pages.missing[gone] = true

		got, err := s.engine.ModulesBySection(s.ctx, "finances")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.True(got[0].FieldByKey("closing_balance").Stale)
	})
}

func issuesByID(issues []Issue) map[string]Issue {
	out := make(map[string]Issue, len(issues))
	for _, issue := range issues {
		out[issue.ID] = issue
	}
	return out
}
