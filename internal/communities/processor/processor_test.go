package processor

import (
	"context"
	"errors"
	"testing"

	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

type fakeStore struct {
	communities map[uuid.UUID]store.Community
	members     map[string]store.CommunityMember
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		communities: make(map[uuid.UUID]store.Community),
		members:     make(map[string]store.CommunityMember),
	}
}

func memberKey(communityID, userID uuid.UUID) string {
	return communityID.String() + ":" + userID.String()
}

func (f *fakeStore) CreateCommunity(_ context.Context, params store.CreateCommunityParams) (store.Community, error) {
	community := store.Community{
		ID:          uuid.New(),
		Name:        params.Name,
		Slug:        params.Slug,
		Description: params.Description,
		CreatedBy:   params.CreatedBy,
	}
	f.communities[community.ID] = community
	return community, nil
}

func (f *fakeStore) GetCommunityByID(_ context.Context, communityID uuid.UUID) (store.Community, error) {
	community, ok := f.communities[communityID]
	if !ok {
		return store.Community{}, store.ErrNotFound
	}
	return community, nil
}

func (f *fakeStore) ListCommunities(_ context.Context, _, _ int) ([]store.Community, error) {
	var communities []store.Community
	for _, community := range f.communities {
		communities = append(communities, community)
	}
	return communities, nil
}

func (f *fakeStore) GetCommunityMember(_ context.Context, communityID, userID uuid.UUID) (store.CommunityMember, error) {
	member, ok := f.members[memberKey(communityID, userID)]
	if !ok {
		return store.CommunityMember{}, store.ErrNotFound
	}
	return member, nil
}

func (f *fakeStore) AddCommunityMember(_ context.Context, communityID, userID uuid.UUID) (store.CommunityMember, error) {
	key := memberKey(communityID, userID)
	if member, ok := f.members[key]; ok {
		return member, nil
	}
	member := store.CommunityMember{
		ID:          uuid.New(),
		CommunityID: communityID,
		UserID:      userID,
		Role:        store.CommunityRoleMember,
	}
	f.members[key] = member
	return member, nil
}

func (f *fakeStore) RemoveCommunityMember(_ context.Context, communityID, userID uuid.UUID) error {
	key := memberKey(communityID, userID)
	if _, ok := f.members[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.members, key)
	return nil
}

func (f *fakeStore) ListCommunityMembers(_ context.Context, communityID uuid.UUID, _, _ int) ([]store.CommunityMember, error) {
	var members []store.CommunityMember
	for _, member := range f.members {
		if member.CommunityID == communityID {
			members = append(members, member)
		}
	}
	return members, nil
}

func TestCreateCommunitySlugifiesName(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, observability.NewLogger())

	community, err := p.CreateCommunity(context.Background(), uuid.New(), "Late Night F1 Fans!", nil)
	if err != nil {
		t.Fatalf("CreateCommunity returned error: %v", err)
	}
	if community.Slug != "late-night-f1-fans" {
		t.Errorf("expected slug late-night-f1-fans, got %q", community.Slug)
	}
}

func TestJoinCommunityIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, observability.NewLogger())
	userID := uuid.New()

	community, err := p.CreateCommunity(context.Background(), uuid.New(), "Clip Makers", nil)
	if err != nil {
		t.Fatalf("CreateCommunity returned error: %v", err)
	}

	first, err := p.JoinCommunity(context.Background(), community.ID, userID)
	if err != nil {
		t.Fatalf("JoinCommunity returned error: %v", err)
	}
	second, err := p.JoinCommunity(context.Background(), community.ID, userID)
	if err != nil {
		t.Fatalf("JoinCommunity returned error on rejoin: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("rejoining created a new membership: %s vs %s", first.ID, second.ID)
	}
}

func TestJoinUnknownCommunity(t *testing.T) {
	p := New(newFakeStore(), observability.NewLogger())

	_, err := p.JoinCommunity(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrCommunityNotFound) {
		t.Errorf("expected ErrCommunityNotFound, got %v", err)
	}
}

func TestLeaveCommunityWithoutMembership(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, observability.NewLogger())

	community, err := p.CreateCommunity(context.Background(), uuid.New(), "Shorts Lab", nil)
	if err != nil {
		t.Fatalf("CreateCommunity returned error: %v", err)
	}

	if err := p.LeaveCommunity(context.Background(), community.ID, uuid.New()); !errors.Is(err, ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestIsMember(t *testing.T) {
	fs := newFakeStore()
	p := New(fs, observability.NewLogger())
	userID := uuid.New()

	community, err := p.CreateCommunity(context.Background(), uuid.New(), "Reel Talk", nil)
	if err != nil {
		t.Fatalf("CreateCommunity returned error: %v", err)
	}
	if _, err := p.JoinCommunity(context.Background(), community.ID, userID); err != nil {
		t.Fatalf("JoinCommunity returned error: %v", err)
	}

	ok, err := p.IsMember(context.Background(), community.ID, userID)
	if err != nil || !ok {
		t.Errorf("expected membership, got ok=%v err=%v", ok, err)
	}
	ok, err = p.IsMember(context.Background(), community.ID, uuid.New())
	if err != nil || ok {
		t.Errorf("expected no membership, got ok=%v err=%v", ok, err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Night Owls":            "night-owls",
		"  spaced  out  ":       "spaced-out",
		"Café & Crème Fans":     "caf-cr-me-fans",
		"already-a-slug":        "already-a-slug",
		"UPPER_case 99 Bottles": "upper-case-99-bottles",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}
