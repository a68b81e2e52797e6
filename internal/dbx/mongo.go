package dbx

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"go.mongodb.org/mongo-driver/mongo"
)

// MapMongoError is MapError for the MongoDB driver.
func MapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return common.ErrorNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: duplicate key", common.ErrorConflict)
	default:
		return fmt.Errorf("%w: mongo error: %w", common.ErrorDependency, err)
	}
}
