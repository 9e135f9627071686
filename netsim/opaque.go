package netsim

// init registers the rest of the closed net-id variant set as opaque
// handles: a config file naming one of these is accepted by the registry
// the same way torus is, it just has no forward/reverse behavior behind it.
// Dragonfly carries two LP types, terminal and router, the way model-net's
// dragonfly.c splits a group's compute nodes from its routers.
func init() {
	RegisterOpaque("simplenet", "modelnet_simplenet")
	RegisterOpaque("simplewan", "modelnet_simplewan")
	RegisterOpaque("dragonfly", "modelnet_dragonfly", "dragonfly_router")
	RegisterOpaque("loggp", "modelnet_loggp")
}
