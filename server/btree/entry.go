package btree

import (
	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/util"
)

// BTREE_MAGIC 入口区域的初始化标记
const BTREE_MAGIC uint32 = 0x42545245

// RecordsPerPage 每个数据页能放的记录数
const RecordsPerPage = common.UNIV_PAGE_SIZE / InformationLength

// entryRegion 0号页 [64,80) 保存的索引入口
type entryRegion struct {
	Magic           uint32
	RootPage        uint32
	UsedRecord      uint32
	AvailableRecord uint32
}

func (e *entryRegion) readFrom(page []byte) {
	cursor := common.ENTRY_REGION_OFFSET
	cursor, e.Magic = util.ReadUB4(page, cursor)
	cursor, e.RootPage = util.ReadUB4(page, cursor)
	cursor, e.UsedRecord = util.ReadUB4(page, cursor)
	_, e.AvailableRecord = util.ReadUB4(page, cursor)
}

func (e *entryRegion) writeTo(page []byte) {
	region := page[common.ENTRY_REGION_OFFSET:common.ENTRY_REGION_OFFSET]
	region = util.WriteUB4(region, e.Magic)
	region = util.WriteUB4(region, e.RootPage)
	region = util.WriteUB4(region, e.UsedRecord)
	util.WriteUB4(region, e.AvailableRecord)
}
