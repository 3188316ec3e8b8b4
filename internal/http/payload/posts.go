package payload

import (
	"github.com/jellydator/validation"

	"patron/internal/core"
)

type PollRequest struct {
	Options      []string `json:"options"`
	EndTimestamp uint64   `json:"end_timestamp"`
}

func (p PollRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Options, validation.Required, validation.Length(2, 20)),
	)
}

type GiveawayRequest struct {
	Prize        string `json:"prize"`
	EndTimestamp uint64 `json:"end_timestamp"`
}

func (g GiveawayRequest) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Prize, validation.Required, amountRule),
	)
}

type PostRequest struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	ImageHash *string          `json:"image_hash,omitempty"`
	Poll      *PollRequest     `json:"poll,omitempty"`
	Giveaway  *GiveawayRequest `json:"giveaway,omitempty"`
}

func (p PostRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&p.Content, validation.Required),
		validation.Field(&p.ImageHash, validation.Match(hexRegex)),
		validation.Field(&p.Poll),
		validation.Field(&p.Giveaway),
	)
}

func (p PostRequest) ToOp() (core.CreatePostOp, error) {
	op := core.CreatePostOp{
		Title:     p.Title,
		Content:   p.Content,
		ImageHash: p.ImageHash,
	}
	if p.Poll != nil {
		op.Poll = &core.PollInput{
			Options:      p.Poll.Options,
			EndTimestamp: p.Poll.EndTimestamp,
		}
	}
	if p.Giveaway != nil {
		prize, err := ParseAmount(p.Giveaway.Prize)
		if err != nil {
			return core.CreatePostOp{}, err
		}
		op.Giveaway = &core.GiveawayInput{
			Prize:        prize,
			EndTimestamp: p.Giveaway.EndTimestamp,
		}
	}
	return op, nil
}

type PostUpdateRequest struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	ImageHash *string `json:"image_hash,omitempty"`
}

func (p PostUpdateRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Length(1, 256)),
		validation.Field(&p.ImageHash, validation.Match(hexRegex)),
	)
}

func (p PostUpdateRequest) ToOp(postID string) core.UpdatePostOp {
	return core.UpdatePostOp{
		PostID:    postID,
		Title:     p.Title,
		Content:   p.Content,
		ImageHash: p.ImageHash,
	}
}

type VoteRequest struct {
	Option int `json:"option"`
}

func (v VoteRequest) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.Option, validation.Min(0)),
	)
}
