package bridge

import (
	"encoding/json"
	"fmt"
)

const (
	methodConnect    = "connect"
	methodSelf       = "self"
	methodEntities   = "entities"
	methodInventory  = "inventory"
	methodBlockAt    = "blockAt"
	methodScanBlocks = "scanBlocks"
	methodTimeOfDay  = "timeOfDay"
	methodBiome      = "biome"
	methodMoveTo     = "moveTo"
	methodDig        = "dig"
	methodEquip      = "equip"
	methodPlaceBlock = "placeBlock"
	methodAttack     = "attack"
	methodSleep      = "sleep"
	methodWake       = "wake"
	methodToss       = "toss"
	methodCraft      = "craft"
	methodChat       = "chat"

	eventChat = "chat"
)

type request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// envelope is anything the bridge sends: a response (ID set) or an
// unsolicited event (Event set).
type envelope struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

type connectParams struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
}

type connectResult struct {
	Pathfinding bool `json:"pathfinding"`
}

type scanParams struct {
	Center any `json:"center"`
	Radius int `json:"radius"`
}

type goalParams struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Range float64 `json:"range"`
}

type equipParams struct {
	Item string `json:"item"`
	Slot string `json:"slot"`
}

type placeParams struct {
	Reference any `json:"reference"`
	Face      any `json:"face"`
}

type itemParams struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
	Table any    `json:"table,omitempty"`
}

type chatParams struct {
	Message string `json:"message"`
}

type timeResult struct {
	Tick int64 `json:"tick"`
}

type biomeResult struct {
	Biome string `json:"biome"`
}
