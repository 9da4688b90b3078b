package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"docket/internal/audit"
	"docket/internal/documents/store"
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

const sectionFinances = id.SectionID("finances")

// fakeListener records the change cascade the workspace would receive.
type fakeListener struct {
	contentChanged []id.GroupID
	deleted        []id.GroupID
	deletedPages   map[id.GroupID][]id.PageID
}

func newFakeListener() *fakeListener {
	return &fakeListener{deletedPages: make(map[id.GroupID][]id.PageID)}
}

func (l *fakeListener) GroupContentChanged(_ context.Context, groupID id.GroupID) error {
	l.contentChanged = append(l.contentChanged, groupID)
	return nil
}

func (l *fakeListener) GroupDeleted(_ context.Context, groupID id.GroupID, removedPages []id.PageID) error {
	l.deleted = append(l.deleted, groupID)
	l.deletedPages[groupID] = removedPages
	return nil
}

type fakeAuditor struct {
	actions []audit.Action
}

func (a *fakeAuditor) Emit(_ context.Context, event audit.Event) error {
	a.actions = append(a.actions, event.Action)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	service  *Service
	listener *fakeListener
	auditor  *fakeAuditor
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.listener = newFakeListener()
	s.auditor = &fakeAuditor{}
	s.service = New(store.NewInMemory(), id.NewCaseID(),
		WithChangeListener(s.listener),
		WithAuditPublisher(s.auditor),
	)
	s.ctx = context.Background()
}

func (s *ServiceSuite) countChanges(groupID id.GroupID) int {
	n := 0
	for _, gid := range s.listener.contentChanged {
		if gid == groupID {
			n++
		}
	}
	return n
}

func (s *ServiceSuite) TestCreateGroup() {
	s.Run("creates and audits", func() {
		group, err := s.service.CreateGroup(s.ctx, sectionFinances, "Bank Statements")
		s.Require().NoError(err)
		s.Equal("Bank Statements", group.Title)
		s.Contains(s.auditor.actions, audit.ActionGroupCreated)
	})

	s.Run("duplicate title surfaces as duplicate_title", func() {
		_, err := s.service.CreateGroup(s.ctx, sectionFinances, "Payslips")
		s.Require().NoError(err)
		_, err = s.service.CreateGroup(s.ctx, sectionFinances, "PAYSLIPS")
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateTitle))
	})

	s.Run("empty title is rejected", func() {
		_, err := s.service.CreateGroup(s.ctx, sectionFinances, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestRenameGroup() {
	group, err := s.service.CreateGroup(s.ctx, sectionFinances, "Old")
	s.Require().NoError(err)

	renamed, err := s.service.RenameGroup(s.ctx, group.ID, "New")
	s.Require().NoError(err)
	s.Equal("New", renamed.Title)

	// A rename counts as a content change: module titles and prompts
	// reference the group by name.
	s.Equal(1, s.countChanges(group.ID))
	s.Contains(s.auditor.actions, audit.ActionGroupRenamed)
}

func (s *ServiceSuite) TestRegisterUpload() {
	s.Run("first upload creates the titled group", func() {
		group, err := s.service.RegisterUpload(s.ctx, sectionFinances, "Bank Statements", "jan.pdf", "blob://jan")
		s.Require().NoError(err)
		s.Len(group.Pages, 1)
	})

	s.Run("later uploads append to the same group", func() {
		first, err := s.service.RegisterUpload(s.ctx, sectionFinances, "Utility Bills", "a.pdf", "blob://a")
		s.Require().NoError(err)
		second, err := s.service.RegisterUpload(s.ctx, sectionFinances, "utility bills", "b.pdf", "blob://b")
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Len(second.Pages, 2)
	})
}

func (s *ServiceSuite) TestMovePage() {
	from, err := s.service.CreateGroup(s.ctx, sectionFinances, "From")
	s.Require().NoError(err)
	to, err := s.service.CreateGroup(s.ctx, sectionFinances, "To")
	s.Require().NoError(err)
	withPage, err := s.service.AddPage(s.ctx, from.ID, "p.pdf", "blob://p")
	s.Require().NoError(err)
	pageID := withPage.Pages[0].ID

	s.Require().NoError(s.service.MovePage(s.ctx, pageID, from.ID, to.ID, 0))

	// Both sides changed content, so both invalidate.
	s.GreaterOrEqual(s.countChanges(from.ID), 1)
	s.GreaterOrEqual(s.countChanges(to.ID), 1)
	s.Contains(s.auditor.actions, audit.ActionPageMoved)
}

func (s *ServiceSuite) TestReorderGroups() {
	a, err := s.service.CreateGroup(s.ctx, sectionFinances, "A")
	s.Require().NoError(err)
	b, err := s.service.CreateGroup(s.ctx, sectionFinances, "B")
	s.Require().NoError(err)

	before := len(s.listener.contentChanged)
	s.Require().NoError(s.service.ReorderGroups(s.ctx, sectionFinances, []id.GroupID{b.ID, a.ID}))

	// Order is presentation state; no consumer is invalidated.
	s.Len(s.listener.contentChanged, before)

	err = s.service.ReorderGroups(s.ctx, sectionFinances, []id.GroupID{b.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeIncompleteSet))
}

func (s *ServiceSuite) TestMergeGroups() {
	source, err := s.service.CreateGroup(s.ctx, sectionFinances, "Loose")
	s.Require().NoError(err)
	dest, err := s.service.CreateGroup(s.ctx, sectionFinances, "Statements")
	s.Require().NoError(err)
	_, err = s.service.AddPage(s.ctx, source.ID, "p.pdf", "blob://p")
	s.Require().NoError(err)

	merged, err := s.service.MergeGroups(s.ctx, source.ID, dest.ID)
	s.Require().NoError(err)
	s.Len(merged.Pages, 1)

	// The source cascade runs as a deletion with no removed pages: the
	// pages live on in the destination.
	s.Require().Contains(s.listener.deleted, source.ID)
	s.Empty(s.listener.deletedPages[source.ID])
	s.GreaterOrEqual(s.countChanges(dest.ID), 1)

	_, err = s.service.MergeGroups(s.ctx, dest.ID, dest.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestSplitGroup() {
	source, err := s.service.CreateGroup(s.ctx, sectionFinances, "Mixed")
	s.Require().NoError(err)
	withPage, err := s.service.AddPage(s.ctx, source.ID, "p.pdf", "blob://p")
	s.Require().NoError(err)

	s.Run("empty selection is rejected", func() {
		_, err := s.service.SplitGroup(s.ctx, source.ID, nil, "New")
		s.True(dErrors.HasCode(err, dErrors.CodeEmptySelection))
	})

	s.Run("split lands in the source's section", func() {
		created, err := s.service.SplitGroup(s.ctx, source.ID, []id.PageID{withPage.Pages[0].ID}, "Extracted")
		s.Require().NoError(err)
		s.Equal(sectionFinances, created.SectionID)
		s.GreaterOrEqual(s.countChanges(source.ID), 1)
	})
}

func (s *ServiceSuite) TestDeleteGroup() {
	group, err := s.service.CreateGroup(s.ctx, sectionFinances, "Doomed")
	s.Require().NoError(err)
	withPage, err := s.service.AddPage(s.ctx, group.ID, "p.pdf", "blob://p")
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteGroup(s.ctx, group.ID))

	s.Require().Contains(s.listener.deleted, group.ID)
	s.Equal([]id.PageID{withPage.Pages[0].ID}, s.listener.deletedPages[group.ID])
	s.Contains(s.auditor.actions, audit.ActionGroupDeleted)

	err = s.service.DeleteGroup(s.ctx, group.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
