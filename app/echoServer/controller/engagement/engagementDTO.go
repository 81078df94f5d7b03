package engagement

type RateReq struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

type CommentReq struct {
	Content string `json:"content" validate:"required,max=2000"`
}
