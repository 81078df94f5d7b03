package cart

type AddItemReq struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type UpdateItemReq struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=99"`
}

type ReturnReq struct {
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}
