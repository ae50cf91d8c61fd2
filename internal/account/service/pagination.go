package service

import "github.com/rideledger/rideledger/pkg/db/pagination"

func paginationInfo(page, pageSize int, total int64) pagination.PageInfo {
	return pagination.PageInfo{Page: page, PageSize: pageSize, TotalCount: total}
}
