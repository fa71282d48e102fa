package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hubhive/internal/geo"
	"hubhive/internal/models"
	"hubhive/internal/repository"
	"hubhive/internal/storage"
	"hubhive/internal/storage/storagetest"
)

func newRoomService(t *testing.T) (*RoomService, *storage.Database) {
	t.Helper()
	db := storagetest.NewDB(t)
	return NewRoomService(repository.NewRepositories(db), zap.NewNop()), db
}

func intPtr(v int) *int { return &v }

func countMessages(t *testing.T, db *storage.Database) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Message{}).Count(&n).Error)
	return n
}

func TestRoomService_CreateRoomAddsCreator(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 1)

	room, err := svc.CreateRoom(context.Background(), users[0].ID, CreateRoomInput{Name: "Coffee"})
	require.NoError(t, err)

	assert.Equal(t, "Coffee", room.Name)
	assert.Equal(t, models.DefaultMaxParticipants, room.MaxParticipants)
	assert.False(t, room.IsPrivate)
	assert.Equal(t, []uint{users[0].ID}, room.Participants)
	assert.Equal(t, 1, room.ParticipantCount)
	require.NotNil(t, room.CreatorName)
	assert.Equal(t, "user1", *room.CreatorName)
	assert.False(t, room.CreatedAt.IsZero())
}

func TestRoomService_CreateRoomValidation(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 1)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "x", MaxParticipants: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "x", Location: geo.NewLocation(100, 0, "")})
	assert.ErrorIs(t, err, ErrInvalidLocation)

	var rooms int64
	require.NoError(t, db.Model(&models.Room{}).Count(&rooms).Error)
	assert.Zero(t, rooms)
}

func TestRoomService_CreateRoomWithBusiness(t *testing.T) {
	svc, db := newRoomService(t)
	owner := storagetest.CreateUser(t, db, "owner", models.UserTypeRegular)
	shop := storagetest.CreateUser(t, db, "beans-co", models.UserTypeBusiness)

	room, err := svc.CreateRoom(context.Background(), owner.ID, CreateRoomInput{
		Name:       "Beans",
		BusinessID: &shop.ID,
		Location:   geo.NewLocation(25.03, 121.56, "Taipei"),
	})
	require.NoError(t, err)
	require.NotNil(t, room.BusinessName)
	assert.Equal(t, "beans-co", *room.BusinessName)
	assert.Equal(t, "Taipei", room.Location.Address)

	// business_id 只是標示，不要求是商家帳號
	other := storagetest.CreateUser(t, db, "neighbour", models.UserTypeRegular)
	room, err = svc.CreateRoom(context.Background(), owner.ID, CreateRoomInput{Name: "Corner", BusinessID: &other.ID})
	require.NoError(t, err)
	require.NotNil(t, room.BusinessID)
	assert.Equal(t, other.ID, *room.BusinessID)
	require.NotNil(t, room.BusinessName)
	assert.Equal(t, "neighbour", *room.BusinessName)
}

func TestRoomService_JoinRoom(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 3)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Pair", MaxParticipants: intPtr(2)})
	require.NoError(t, err)

	t.Run("adds member", func(t *testing.T) {
		joined, err := svc.JoinRoom(ctx, users[1].ID, room.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{users[0].ID, users[1].ID}, joined.Participants)
	})

	t.Run("idempotent", func(t *testing.T) {
		joined, err := svc.JoinRoom(ctx, users[1].ID, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, joined.ParticipantCount)
	})

	t.Run("full room", func(t *testing.T) {
		_, err := svc.JoinRoom(ctx, users[2].ID, room.ID)
		assert.ErrorIs(t, err, ErrRoomFull)
		assert.ErrorIs(t, err, ErrCapacity)

		again, err := svc.GetRoom(ctx, users[0].ID, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, again.ParticipantCount)
	})

	t.Run("member of full room can rejoin", func(t *testing.T) {
		_, err := svc.JoinRoom(ctx, users[0].ID, room.ID)
		assert.NoError(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.JoinRoom(ctx, users[2].ID, room.ID+99)
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRoomService_GetRoomPrivacy(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 2)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)

	_, err = svc.GetRoom(ctx, users[0].ID, room.ID)
	assert.NoError(t, err)

	_, err = svc.GetRoom(ctx, users[1].ID, room.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetRoom(ctx, users[1].ID, room.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomService_DiscoverRooms(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 1)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "NYC", Location: geo.NewLocation(40, -73, "")})
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Null Island", Location: geo.NewLocation(0, 0.001, "")})
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Nowhere"})
	require.NoError(t, err)
	_, err = svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Hidden", IsPrivate: true, Location: geo.NewLocation(0, 0, "")})
	require.NoError(t, err)

	all, err := svc.DiscoverRooms(ctx, nil, DefaultDiscoveryRadiusKm)
	require.NoError(t, err)
	assert.Len(t, all, 3, "unfiltered discovery includes rooms without location but not private ones")

	near, err := svc.DiscoverRooms(ctx, &geo.Point{Latitude: 0, Longitude: 0}, 1)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "Null Island", near[0].Name)
}

func TestRoomService_SendMessage(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 2)
	ctx := context.Background()

	open, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Open"})
	require.NoError(t, err)
	secret, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)

	t.Run("empty content is rejected", func(t *testing.T) {
		for _, content := range []string{"", "   ", "\n\t "} {
			_, err := svc.SendMessage(ctx, SendMessageInput{RoomID: open.ID, UserID: users[0].ID, Content: content})
			assert.ErrorIs(t, err, ErrEmptyContent)
		}
		assert.Zero(t, countMessages(t, db))
	})

	t.Run("private room non participant", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, SendMessageInput{RoomID: secret.ID, UserID: users[1].ID, Content: "let me in"})
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.Zero(t, countMessages(t, db))
	})

	t.Run("unknown room and user", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, SendMessageInput{RoomID: 999, UserID: users[0].ID, Content: "hi"})
		assert.ErrorIs(t, err, ErrRoomNotFound)
		_, err = svc.SendMessage(ctx, SendMessageInput{RoomID: open.ID, UserID: 999, Content: "hi"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("public room non participant", func(t *testing.T) {
		media := "https://cdn.example.com/a.png"
		msg, err := svc.SendMessage(ctx, SendMessageInput{
			RoomID: open.ID, UserID: users[1].ID, Content: "  look  ", MessageType: "image", MediaURL: &media,
		})
		require.NoError(t, err)
		assert.Equal(t, "look", msg.Content)
		assert.Equal(t, "image", msg.MessageType)
		assert.Equal(t, &media, msg.MediaURL)
		require.NotNil(t, msg.Username)
		assert.Equal(t, "user2", *msg.Username)
	})

	t.Run("default type", func(t *testing.T) {
		msg, err := svc.SendMessage(ctx, SendMessageInput{RoomID: secret.ID, UserID: users[0].ID, Content: "hello"})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultMessageType, msg.MessageType)
		assert.Equal(t, secret.ID, msg.ChatroomID)
	})
}

func TestRoomService_ListMessagesAscending(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 2)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "History"})
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		_, err := svc.SendMessage(ctx, SendMessageInput{RoomID: room.ID, UserID: users[i%2].ID, Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	all, err := svc.ListMessages(ctx, room.ID, users[0].ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 7)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt), "messages must be in non-decreasing created_at order")
		assert.Greater(t, all[i].ID, all[i-1].ID)
	}
	assert.Equal(t, "m1", all[0].Content)
	assert.Equal(t, "m7", all[6].Content)

	// 最新的三則，仍然由舊到新
	latest, err := svc.ListMessages(ctx, room.ID, users[0].ID, 3, 0)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, []string{"m5", "m6", "m7"}, contents(latest))

	older, err := svc.ListMessages(ctx, room.ID, users[0].ID, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m4"}, contents(older))

	_, err = svc.ListMessages(ctx, room.ID+1, users[0].ID, 10, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomService_ListMessagesPrivate(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 2)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{Name: "Secret", IsPrivate: true})
	require.NoError(t, err)

	_, err = svc.ListMessages(ctx, room.ID, users[1].ID, 10, 0)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.JoinRoom(ctx, users[1].ID, room.ID)
	require.NoError(t, err)

	msgs, err := svc.ListMessages(ctx, room.ID, users[1].ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRoomService_EndToEnd(t *testing.T) {
	svc, db := newRoomService(t)
	users := storagetest.CreateUsers(t, db, 2)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, users[0].ID, CreateRoomInput{
		Name:     "Coffee",
		Location: geo.NewLocation(40, -73, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{users[0].ID}, room.Participants)

	room, err = svc.JoinRoom(ctx, users[1].ID, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{users[0].ID, users[1].ID}, room.Participants)

	sent, err := svc.SendMessage(ctx, SendMessageInput{RoomID: room.ID, UserID: users[1].ID, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, users[1].ID, sent.UserID)

	msgs, err := svc.ListMessages(ctx, room.ID, users[0].ID, DefaultMessageLimit, 0)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, sent.ID, last.ID)
	assert.Equal(t, "hi", last.Content)

	found, err := svc.DiscoverRooms(ctx, &geo.Point{Latitude: 0, Longitude: 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func contents(msgs []*Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
