package score

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/rfp-cli/internal/extract"
	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRfp(ctx context.Context, rfp *model.Rfp) (*model.Rfp, error) {
	args := m.Called(ctx, rfp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Rfp), args.Error(1)
}

func (m *mockStore) GetRfp(ctx context.Context, id string) (*model.Rfp, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Rfp), args.Error(1)
}

func (m *mockStore) ListRfps(ctx context.Context) ([]model.Rfp, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Rfp), args.Error(1)
}

func (m *mockStore) UpdateRfpStatus(ctx context.Context, id string, status model.RfpStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) CreateVendor(ctx context.Context, vendor *model.Vendor) (*model.Vendor, error) {
	args := m.Called(ctx, vendor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vendor), args.Error(1)
}

func (m *mockStore) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vendor), args.Error(1)
}

func (m *mockStore) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vendor), args.Error(1)
}

func (m *mockStore) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Vendor), args.Error(1)
}

func (m *mockStore) UpdateVendor(ctx context.Context, vendor *model.Vendor) error {
	return m.Called(ctx, vendor).Error(0)
}

func (m *mockStore) DeleteVendor(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) CreateProposal(ctx context.Context, p *model.Proposal) (*model.Proposal, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockStore) GetProposal(ctx context.Context, id string) (*model.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockStore) GetProposalByMessageID(ctx context.Context, messageID string) (*model.Proposal, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *mockStore) ListProposals(ctx context.Context, filter store.ProposalFilter) ([]model.Proposal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Proposal), args.Error(1)
}

func (m *mockStore) UpdateProposalScore(ctx context.Context, id string, score float64) error {
	return m.Called(ctx, id, score).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type mockCompareClient struct {
	mock.Mock
}

func (m *mockCompareClient) CompareProposals(ctx context.Context, rfp *model.Rfp, proposals []extract.ComparisonInput) (*model.Comparison, error) {
	args := m.Called(ctx, rfp, proposals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comparison), args.Error(1)
}
