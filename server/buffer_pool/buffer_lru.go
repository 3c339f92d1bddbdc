package buffer_pool

import (
	"container/list"
	"time"

	"github.com/zhukovaskychina/xindex/server/common"
)

/*
LRUCacheImpl 中点插入的LRU，分为young区和old区。

新读入的页插入old区头部，在old区停留超过 oldBlocksTime 之后再被访问才会
移到young区头部，这样一次性的顺序扫描不会把热点页挤出去。
淘汰从old区尾部开始，然后是young区尾部。
调用方持有 BufferPool.mu。
*/
type LRUCacheImpl struct {
	youngList *list.List
	oldList   *list.List
	items     map[common.PageKey]*list.Element

	youngPercent  float64
	oldBlocksTime time.Duration
}

type lruItem struct {
	key            common.PageKey
	value          *BufferPage
	firstVisitTime time.Time
	lastVisitTime  time.Time
	young          bool
}

func NewLRUCacheImpl(youngPercent float64, oldBlocksTime time.Duration) *LRUCacheImpl {
	return &LRUCacheImpl{
		youngList:     list.New(),
		oldList:       list.New(),
		items:         make(map[common.PageKey]*list.Element),
		youngPercent:  youngPercent,
		oldBlocksTime: oldBlocksTime,
	}
}

func (lru *LRUCacheImpl) Len() int {
	return len(lru.items)
}

func (lru *LRUCacheImpl) YoungLen() int {
	return lru.youngList.Len()
}

func (lru *LRUCacheImpl) OldLen() int {
	return lru.oldList.Len()
}

// Add 新页面进入old区头部
func (lru *LRUCacheImpl) Add(key common.PageKey, page *BufferPage) {
	if _, ok := lru.items[key]; ok {
		lru.Touch(key)
		return
	}
	now := time.Now()
	lru.items[key] = lru.oldList.PushFront(&lruItem{
		key:            key,
		value:          page,
		firstVisitTime: now,
		lastVisitTime:  now,
	})
}

// Touch 记录一次访问
func (lru *LRUCacheImpl) Touch(key common.PageKey) {
	elem, ok := lru.items[key]
	if !ok {
		return
	}
	item := elem.Value.(*lruItem)
	now := time.Now()
	item.lastVisitTime = now
	if item.young {
		lru.youngList.MoveToFront(elem)
		return
	}
	if now.Sub(item.firstVisitTime) < lru.oldBlocksTime {
		return
	}
	lru.oldList.Remove(elem)
	item.young = true
	lru.items[key] = lru.youngList.PushFront(item)
	lru.rebalance()
}

func (lru *LRUCacheImpl) Remove(key common.PageKey) {
	elem, ok := lru.items[key]
	if !ok {
		return
	}
	if elem.Value.(*lruItem).young {
		lru.youngList.Remove(elem)
	} else {
		lru.oldList.Remove(elem)
	}
	delete(lru.items, key)
}

// Victim 从尾部开始找到第一个可以淘汰的页
func (lru *LRUCacheImpl) Victim(canEvict func(*BufferPage) bool) *BufferPage {
	for _, l := range []*list.List{lru.oldList, lru.youngList} {
		for e := l.Back(); e != nil; e = e.Prev() {
			page := e.Value.(*lruItem).value
			if canEvict(page) {
				return page
			}
		}
	}
	return nil
}

// rebalance young区超出比例时把尾部降级到old区
func (lru *LRUCacheImpl) rebalance() {
	limit := int(float64(len(lru.items)) * lru.youngPercent)
	if limit < 1 {
		limit = 1
	}
	for lru.youngList.Len() > limit {
		elem := lru.youngList.Back()
		item := elem.Value.(*lruItem)
		lru.youngList.Remove(elem)
		item.young = false
		item.firstVisitTime = time.Now()
		lru.items[item.key] = lru.oldList.PushFront(item)
	}
}
