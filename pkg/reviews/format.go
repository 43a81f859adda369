package reviews

import "github.com/pario-ai/reviewd/pkg/models"

// AnonymousAuthor stands in for reviewers without a display name.
const AnonymousAuthor = "Anonymous"

// Format projects an upstream review onto the served record.
func Format(r models.Review) models.ReviewRecord {
	author := AnonymousAuthor
	if r.Reviewer != nil && r.Reviewer.DisplayName != "" {
		author = r.Reviewer.DisplayName
	}
	return models.ReviewRecord{
		Author:     author,
		Rating:     r.StarRating,
		Comment:    r.Comment,
		CreateTime: r.CreateTime,
	}
}

// FormatAll projects every review. The result is never nil.
func FormatAll(in []models.Review) []models.ReviewRecord {
	out := make([]models.ReviewRecord, 0, len(in))
	for _, r := range in {
		out = append(out, Format(r))
	}
	return out
}
