package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/qs3c/ecogrid_server/internal/model"
)

// 允许投影的字段
var userFields = map[string][]string{
	"email":               {"email"},
	"name":                {"name"},
	"mobile":              {"mobile"},
	"role":                {"role"},
	"location":            {"latitude", "longitude"},
	"subscription":        {"subscription_plan", "subscription_price", "subscription_paid"},
	"notification_status": {"notification_status"},
	"created_at":          {"created_at"},
}

// MongoUserRepository 基于 MongoDB 的用户存储
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database, collection string) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(collection)}
}

// EnsureIndexes 建立邮箱唯一索引和手机号稀疏唯一索引
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("error creating user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := r.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetByMobile(ctx context.Context, mobile string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"mobile": mobile})
}

func (r *MongoUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"email": email})
	return count > 0, err
}

func (r *MongoUserRepository) UpdateSubscription(ctx context.Context, email string, patch model.SubscriptionPatch) (int64, error) {
	set := bson.M{
		"subscription_plan":  patch.Plan,
		"subscription_price": patch.Price,
		"subscription_paid":  patch.Paid,
		"updated_at":         time.Now(),
	}
	if !patch.KeepNotification {
		set["notification_status"] = patch.NotificationStatus
		set["notification_error"] = ""
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("error updating subscription: %w", err)
	}
	return result.MatchedCount, nil
}

func (r *MongoUserRepository) UpdateNotification(ctx context.Context, email string, update model.NotificationUpdate) error {
	now := time.Now()
	return r.updateOne(ctx, email, bson.M{
		"notification_status": update.Status,
		"notification_error":  update.Error,
		"notified_at":         now,
		"updated_at":          now,
	})
}

func (r *MongoUserRepository) UpdateLocation(ctx context.Context, email string, loc model.Location) error {
	return r.updateOne(ctx, email, bson.M{
		"latitude":   loc.Latitude,
		"longitude":  loc.Longitude,
		"updated_at": time.Now(),
	})
}

func (r *MongoUserRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return 0, fmt.Errorf("error deleting user: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoUserRepository) List(ctx context.Context, fields ...string) ([]*model.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(listProjection(fields)).SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}
	return users, nil
}

// listProjection 未指定或全是未知字段时返回除密码外的全部字段
func listProjection(fields []string) bson.M {
	selected := bson.M{}
	for _, f := range fields {
		for _, name := range userFields[f] {
			selected[name] = 1
		}
	}
	if len(selected) == 0 {
		return bson.M{"password": 0}
	}
	return selected
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) updateOne(ctx context.Context, email string, set bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
