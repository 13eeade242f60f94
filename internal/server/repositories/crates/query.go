package crates

import (
	"fmt"
	"strings"
)

const (
	SortAlpha     = "alpha"
	SortDownloads = "downloads"
)

// ListQuery selects one page of crates. At most one filter is applied, in
// field order: Q, Letter, Keyword, Category, UserID, FollowedBy.
type ListQuery struct {
	Q          string
	Letter     string
	Keyword    string
	Category   string
	UserID     *int64
	FollowedBy *int64
	Sort       string
	Limit      int
	Offset     int
}

// BuildListQuery renders q as a single statement whose last column is the
// windowed total.
func BuildListQuery(q ListQuery) (string, []any) {
	var (
		b     strings.Builder
		args  []any
		order string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString("SELECT ")
	b.WriteString(crateColumns)
	b.WriteString(", COUNT(*) OVER () AS total FROM crates")

	switch {
	case q.Q != "":
		p := arg(q.Q)
		fmt.Fprintf(&b, ", plainto_tsquery(%s) q WHERE q @@ crates.textsearchable_index_col", p)
		perfect := fmt.Sprintf("canon_crate_name(crates.name) = canon_crate_name(%s) DESC", p)
		if q.Sort == SortDownloads {
			order = perfect + ", crates.downloads DESC"
		} else {
			order = perfect + ", ts_rank_cd(crates.textsearchable_index_col, q, 32) DESC"
		}
	case q.Letter != "":
		pattern := strings.ToUpper(q.Letter[:1]) + "%"
		fmt.Fprintf(&b, " WHERE upper(crates.name) LIKE %s", arg(pattern))
	case q.Keyword != "":
		fmt.Fprintf(&b, " JOIN crates_keywords ck ON ck.crate_id = crates.id"+
			" JOIN keywords k ON k.id = ck.keyword_id"+
			" WHERE lower(k.keyword) = lower(%s)", arg(q.Keyword))
	case q.Category != "":
		p := arg(q.Category)
		fmt.Fprintf(&b, " WHERE crates.id IN (SELECT cc.crate_id FROM crates_categories cc"+
			" JOIN categories c ON c.id = cc.category_id"+
			" WHERE c.slug = %s OR c.slug LIKE %s || '::%%')", p, p)
	case q.UserID != nil:
		fmt.Fprintf(&b, " JOIN crate_owners co ON co.crate_id = crates.id"+
			" WHERE co.owner_id = %s AND co.owner_kind = 0 AND NOT co.deleted", arg(*q.UserID))
	case q.FollowedBy != nil:
		fmt.Fprintf(&b, " JOIN follows f ON f.crate_id = crates.id WHERE f.user_id = %s", arg(*q.FollowedBy))
	}

	if order == "" {
		if q.Sort == SortDownloads {
			order = "crates.downloads DESC"
		} else {
			order = "crates.name ASC"
		}
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT %s OFFSET %s", order, arg(q.Limit), arg(q.Offset))
	return b.String(), args
}
