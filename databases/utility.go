package databases

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Page describes a slice of a listing. A zero Limit returns everything.
type Page struct {
	Limit int
	Page  int
}

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	if mp.limit <= 0 {
		return options.Find()
	}
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// NewestFirst returns find options for p sorted by creation time, newest first
func NewestFirst(p Page) *options.FindOptions {
	return newMongoPaginate(p.Limit, p.Page).getPaginatedOpts().
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
}
