package service

import "chatapp/internal/ws"

// Broadcaster 抽象实时推送层，service 不直接依赖具体的 Hub。
type Broadcaster interface {
	Broadcast(evt ws.Event)
}
