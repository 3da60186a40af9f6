package repos

import (
	"context"
	"fmt"

	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/mongostore"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	// MongoCollection is the subset of *mongo.Collection the repository uses.
	MongoCollection interface {
		mongostore.Collection
		BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	}

	// MongoCustomersRepository runs customer searches against a MongoDB
	// collection.
	MongoCustomersRepository struct {
		coll    MongoCollection
		pinger  ports.Pinger
		breaker *circuitbreaker.CircuitBreaker
		logger  logger.Logger
	}
)

var _ ports.CustomersRepository = (*MongoCustomersRepository)(nil)

func NewMongoCustomersRepository(
	coll MongoCollection,
	pinger ports.Pinger,
	breaker *circuitbreaker.CircuitBreaker,
	log logger.Logger,
) *MongoCustomersRepository {
	return &MongoCustomersRepository{
		coll:    coll,
		pinger:  pinger,
		breaker: breaker,
		logger:  log,
	}
}

func (r *MongoCustomersRepository) Customers() queryable.Queryable[model.Customer] {
	return mongostore.New[model.Customer](
		r.coll,
		mongostore.WithLogger(r.logger),
		mongostore.WithCircuitBreaker(r.breaker),
	)
}

// UpdateMany replaces every customer document in one ordered bulk write.
// Documents are matched by id; a customer without a document fails the call
// after the preceding replacements were applied.
func (r *MongoCustomersRepository) UpdateMany(ctx context.Context, customers []model.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(customers))
	for index := range customers {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: customers[index].ID}}).
			SetReplacement(customers[index]))
	}

	result, err := circuitbreaker.Execute(r.breaker, func() (*mongo.BulkWriteResult, error) {
		return r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	})
	if err != nil {
		log := r.logger.WithContext(ctx)
		log.Error().
			Err(err).
			Int("customers", len(customers)).
			Msg("failed to replace customer documents")

		return fmt.Errorf("%w: %v", mongostore.ErrQuery, err)
	}

	if result.MatchedCount < int64(len(customers)) {
		return fmt.Errorf("%w: matched %d of %d", model.ErrCustomerNotFound, result.MatchedCount, len(customers))
	}

	return nil
}

func (r *MongoCustomersRepository) Ping(ctx context.Context) error {
	if r.pinger == nil {
		return nil
	}

	return r.pinger.Ping(ctx)
}
