package model

type Post struct {
	ID            string    `json:"id"`
	Author        Owner     `json:"author"`
	AuthorChainID ChainID   `json:"author_chain_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ImageHash     *string   `json:"image_hash,omitempty"`
	CreatedAt     uint64    `json:"created_at"`
	Poll          *Poll     `json:"poll,omitempty"`
	Giveaway      *Giveaway `json:"giveaway,omitempty"`
}

type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is embedded in a post at creation time and mutated only through
// vote casting. Tallies are always recomputed from the voter map so that
// replaying the same vote twice cannot inflate them.
type Poll struct {
	Options      []PollOption  `json:"options"`
	EndTimestamp uint64        `json:"end_timestamp"`
	Voters       map[Owner]int `json:"voters"`
}

// Retally rewrites every option's vote count from the voter map.
func (p *Poll) Retally() {
	for i := range p.Options {
		p.Options[i].Votes = 0
	}
	for _, choice := range p.Voters {
		if choice >= 0 && choice < len(p.Options) {
			p.Options[choice].Votes++
		}
	}
}

// Ended reports whether voting is closed; a zero end timestamp means the
// poll never closes.
func (p *Poll) Ended(now uint64) bool {
	return p.EndTimestamp > 0 && now > p.EndTimestamp
}

type GiveawayEntry struct {
	Participant Owner   `json:"participant"`
	Chain       ChainID `json:"chain_id"`
	JoinedAt    uint64  `json:"joined_at"`
}

// Giveaway is embedded in a post at creation time. Once resolved it accepts
// no further participants and names exactly one winner.
type Giveaway struct {
	Prize        Amount          `json:"prize"`
	EndTimestamp uint64          `json:"end_timestamp"`
	Participants []GiveawayEntry `json:"participants"`
	Winner       *Owner          `json:"winner,omitempty"`
	Resolved     bool            `json:"resolved"`
}

func (g *Giveaway) Ended(now uint64) bool {
	return g.EndTimestamp > 0 && now > g.EndTimestamp
}

// WinnerIndex derives the winning participant slot. The selection is
// deterministic and predictable; the host offers no stronger randomness.
func (g *Giveaway) WinnerIndex(now uint64, postID string) int {
	n := uint64(len(g.Participants))
	return int((now + uint64(len(postID)) + n) % n)
}
