package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_tally_matches_ballots",
			SQL: `SELECT d.id, d.votes_for, d.votes_against, b.f, b.a FROM disputes d
                  LEFT JOIN (SELECT dispute_id,
                                    COUNT(*) FILTER (WHERE direction = 'for') AS f,
                                    COUNT(*) FILTER (WHERE direction = 'against') AS a
                             FROM dispute_votes GROUP BY dispute_id) b ON b.dispute_id = d.id
                  WHERE d.votes_for <> COALESCE(b.f, 0) OR d.votes_against <> COALESCE(b.a, 0)`,
		},
		{
			Name: "O2_voting_threshold",
			SQL: `SELECT id, proposal_count, voting_enabled FROM disputes
                  WHERE voting_enabled <> (proposal_count >= 3)`,
		},
		{
			Name: "O3_proposals_logged",
			SQL: `SELECT d.id, d.proposal_count, COUNT(e.id) FROM disputes d
                  LEFT JOIN dispute_events e ON e.dispute_id = d.id AND e.type = 'PROPOSAL_SUBMITTED'
                  GROUP BY d.id, d.proposal_count
                  HAVING d.proposal_count <> COUNT(e.id)`,
		},
		{
			Name: "O4_event_seq_contiguous",
			SQL: `WITH seqs AS (
                      SELECT dispute_id, seq,
                             ROW_NUMBER() OVER (PARTITION BY dispute_id ORDER BY seq) AS n
                      FROM dispute_events)
                  SELECT * FROM seqs WHERE seq <> n`,
		},
		{
			Name: "O5_party_ballots",
			SQL: `SELECT v.* FROM dispute_votes v
                  JOIN disputes d ON d.id = v.dispute_id
                  WHERE v.voter IN (d.buyer, d.farmer)`,
		},
		{
			Name: "O6_ballots_after_activation",
			SQL: `SELECT v.* FROM dispute_votes v
                  JOIN disputes d ON d.id = v.dispute_id
                  WHERE d.voting_enabled = false`,
		},
		{
			Name: "O7_resolution_consistent",
			SQL: `SELECT d.id, d.resolved_at, o.status, COUNT(e.id) AS resolved_events FROM disputes d
                  JOIN orders o ON o.id = d.order_id
                  LEFT JOIN dispute_events e ON e.dispute_id = d.id AND e.type = 'DISPUTE_RESOLVED'
                  GROUP BY d.id, d.status, d.resolved_at, o.status
                  HAVING (d.status = 1 AND (d.resolved_at IS NULL OR o.status <> 2 OR COUNT(e.id) <> 1))
                      OR (d.status = 0 AND COUNT(e.id) <> 0)`,
		},
		{
			Name: "O8_split_sums",
			SQL: `SELECT id, farmer_percentage, buyer_percentage FROM disputes
                  WHERE proposal_count > 0 AND farmer_percentage + buyer_percentage <> 100`,
		},
		{
			Name: "O9_soft_delete_stamped",
			SQL:  `SELECT id FROM products WHERE is_deleted <> (deleted_at IS NOT NULL)`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
