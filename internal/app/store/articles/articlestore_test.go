package articlestore_test

import (
	"testing"

	articlestore "github.com/dalemusser/gatherhub/internal/app/store/articles"
	"github.com/dalemusser/gatherhub/internal/domain/models"
	"github.com/dalemusser/gatherhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create_RequiresScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := articlestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, primitive.NewObjectID(), nil, nil, "No Home", "body", false)
	if err != articlestore.ErrNoScope {
		t.Errorf("expected ErrNoScope, got %v", err)
	}
}

func TestStore_DraftVisibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := articlestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author", "author@example.com")
	reader := fixtures.CreateUser(ctx, "Reader", "reader@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", author.ID)

	if _, err := store.Create(ctx, author.ID, &community.ID, nil, "Published", "body", false); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, author.ID, &community.ID, nil, "Draft", "body", true); err != nil {
		t.Fatalf("Create draft failed: %v", err)
	}

	// Readers see only published articles.
	forReader, err := store.ListByCommunity(ctx, community.ID, reader.ID, primitive.NilObjectID, 10)
	if err != nil {
		t.Fatalf("ListByCommunity failed: %v", err)
	}
	if len(forReader) != 1 || forReader[0].Title != "Published" {
		t.Errorf("reader view: got %d articles", len(forReader))
	}

	// The author sees their own drafts too.
	forAuthor, err := store.ListByCommunity(ctx, community.ID, author.ID, primitive.NilObjectID, 10)
	if err != nil {
		t.Fatalf("ListByCommunity failed: %v", err)
	}
	if len(forAuthor) != 2 {
		t.Errorf("author view: got %d articles, want 2", len(forAuthor))
	}
}

func TestStore_Publish(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := articlestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author", "author@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", author.ID)

	draft, err := store.Create(ctx, author.ID, &community.ID, nil, "Draft", "body", true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Publish(ctx, draft.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, _ := store.GetByID(ctx, draft.ID)
	if got.Draft {
		t.Error("article still a draft after publish")
	}

	if err := store.Publish(ctx, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}

func TestStore_Images(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := articlestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author", "author@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", author.ID)
	article := fixtures.CreateArticle(ctx, "With Images", community.ID, author.ID)

	img := models.ArticleImage{
		ID:      primitive.NewObjectID(),
		Path:    "article/gallery/" + article.ID.Hex() + "/x.jpg",
		Caption: "the venue",
	}
	if err := store.AddImage(ctx, article.ID, img); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	got, _ := store.GetByID(ctx, article.ID)
	if len(got.Images) != 1 || got.Images[0].Caption != "the venue" {
		t.Errorf("images: got %+v", got.Images)
	}

	if err := store.RemoveImage(ctx, article.ID, img.ID); err != nil {
		t.Fatalf("RemoveImage failed: %v", err)
	}
	got, _ = store.GetByID(ctx, article.ID)
	if len(got.Images) != 0 {
		t.Errorf("image not removed: %+v", got.Images)
	}
}

func TestStore_IDsAndImagesByScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := articlestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	author := fixtures.CreateUser(ctx, "Author", "author@example.com")
	community := fixtures.CreateCommunity(ctx, "Community", author.ID)
	a1 := fixtures.CreateArticle(ctx, "One", community.ID, author.ID)
	a2 := fixtures.CreateArticle(ctx, "Two", community.ID, author.ID)

	if err := store.AddImage(ctx, a1.ID, models.ArticleImage{
		ID:   primitive.NewObjectID(),
		Path: "article/gallery/p1.jpg",
	}); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	ids, paths, err := store.IDsAndImagesByScope(ctx, "community_id", community.ID)
	if err != nil {
		t.Fatalf("IDsAndImagesByScope failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids: got %d, want 2", len(ids))
	}
	if len(paths) != 1 || paths[0] != "article/gallery/p1.jpg" {
		t.Errorf("paths: got %v", paths)
	}
	_ = a2
}
