package repository

import (
	"fmt"

	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

// sumDecimal 汇总指定金额列，空集返回 0。
func sumDecimal(query *gorm.DB, column string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select(fmt.Sprintf("COALESCE(SUM(%s), 0) AS total", column)).Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(models.MoneyScale), nil
}
