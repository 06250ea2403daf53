package postgres

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

// predicate accumulates WHERE clauses with positional arguments.
type predicate struct {
	clauses []string
	args    []any
}

// add appends arg and formats clause with its placeholder number.
func (p *predicate) add(clause string, arg any) {
	p.args = append(p.args, arg)
	p.clauses = append(p.clauses, fmt.Sprintf(clause, len(p.args)))
}

func (p *predicate) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// buildChannelPredicate is shared by list and count so both always agree.
func buildChannelPredicate(f crawler.ChannelFilter) *predicate {
	p := &predicate{}
	if f.Emailed != nil {
		p.add("c.emailed = $%d", *f.Emailed)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p.add(`(c.title ILIKE $%[1]d ESCAPE '\' OR c.description ILIKE $%[1]d ESCAPE '\' OR c.country ILIKE $%[1]d ESCAPE '\')`,
			"%"+escapeLike(s)+"%")
	}
	if f.CountryCode != "" {
		p.add("c.country_code = $%d", f.CountryCode)
	}
	if f.SearchKeyword != "" {
		p.add("c.search_keyword = $%d", f.SearchKeyword)
	}
	if f.MinSubscribers != nil {
		p.add("c.subscribers >= $%d", *f.MinSubscribers)
	}
	if f.MaxSubscribers != nil {
		p.add("c.subscribers <= $%d", *f.MaxSubscribers)
	}
	if f.MinScore != nil {
		p.add("c.priority_score >= $%d", *f.MinScore)
	}
	if f.ReplyReceived != nil {
		p.add("c.reply_received = $%d", *f.ReplyReceived)
	}
	return p
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// orderClause only ever interpolates allow-listed column names.
func orderClause(opts crawler.ListOptions) string {
	dir := "DESC"
	if opts.Order == crawler.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY c.%s %s NULLS LAST, c.id %s", opts.SortBy, dir, dir)
}
