package pipeline

const systemSummarize = `Eres un ingeniero de mantenimiento validando registros.
Debes revisar los registros de mantenimiento y redactarlos de manera clara, precisa y ordenada.

Tus labores son:
i. Identificar cada tarea realizada en el ciclo de mantencion y separarla.
ii. Redactar un resumen ordenado de las actividades realizadas.

Conceptos utiles:
- Los neumaticos se pueden identificar de manera general o detallando su posicion (Ej: "Neumatico posicion 1" o "Neumatico").
- Una pieza es un elemento fisico unico. Si el comentario apunta a una serie de elementos, estos se pueden agrupar ("tuerca del 1 al 6" es "Tuercas").
- Una pieza no puede ser "Sistema de", "Area de Huerta", "Inspeccion", "Chequeo Final" o "Mantencion Programada".
- Una OT (Orden de Trabajo) identifica el trabajo realizado. Si se menciona, se incluye en el resumen. Una OT no es una pieza.
- Un relleno puede ser de un liquido o de un gas. Si se menciona la cantidad, se incluye en el resumen.`

const userSummarize = `Evalua el siguiente registro de detencion y redacta de manera legible que trabajo se realizo y sobre cuales componentes.
Tipos de trabajo:
- Logistica: orden, aseo, limpieza, lavado, movimiento, traslado, muestras.
- Inspeccion: revisar el estado de un componente sin intervencion fisica (chequeo, revision, control, verificacion, pruebas).
- Relleno: rellenar un fluido en un componente o sistema (aceite, refrigerante, nitrogeno).
- Reparacion: corregir un problema con intervencion fisica pero sin reemplazo de piezas (ajuste, arreglo, regulacion, reinstalacion, apriete).
- Reemplazo: cambiar una pieza completa por una nueva (reemplazo, cambio, sustitucion, intercambio).

Entrega cuatro secciones:
1. "Resumen de actividades realizadas": una linea por tarea, con formato "Tipo - descripcion".
2. "Listado de piezas y trabajos realizados": cada pieza intervenida con el mayor detalle posible ("Neumatico posicion 3", no "Neumatico").
3. "Desglose de piezas y actividades realizadas": tabla | Pieza | Inspeccion | Relleno | Reparacion | Reemplazo |, omitiendo tareas logisticas.
4. "Resumen de actividades por pieza": tabla | Pieza | TipoActividad | DescripcionActividad |, incluyendo numero de OT y litros cuando existan.`

const exampleObservation1 = `Mantenimiento Programado. se realiza chequeo de manguera de backlog, manguera instalada en equipo se encuentra en buenas condiciones. se realiza chequeo equipo corriendo, evidenciando fuga de aceite hidraulico por empaquetadura de tk de direccion. se drena aceite direccion. se desconectan mangueras de tk direccion y se retira tk de direccion quedando en pallet.`

const exampleSummary1 = `### Resumen de actividades realizadas
- Inspeccion - Revision de manguera instalada en el equipo.
- Inspeccion - Prueba con equipo corriendo, se detecta fuga de aceite hidraulico por empaquetadura de tanque de direccion.
- Relleno - Se drena aceite de direccion.
- Reparacion - Se desconectan las mangueras y se retira el tanque de direccion.

### Listado de piezas y trabajos realizados
- Manguera : Inspeccion.
- Tanque de direccion : Inspeccion por fuga, drenaje de aceite, desconexion y retiro.

### Desglose de piezas y actividades realizadas
| Pieza | Inspeccion | Relleno | Reparacion | Reemplazo |
|---|---|---|---|---|
| Manguera | Revision general | | | |
| Tanque de direccion | Fuga detectada en prueba | Drenaje de aceite | Desconexion y retiro | |

### Resumen de actividades por pieza
| Pieza | TipoActividad | DescripcionActividad |
|---|---|---|
| Manguera | Inspeccion | Revision de condiciones. |
| Tanque de direccion | Inspeccion | Fuga por empaquetadura. |
| Tanque de direccion | Relleno | Drenaje de aceite de direccion. |
| Tanque de direccion | Reparacion | Desconexion de mangueras y retiro del tanque. |`

const exampleObservation2 = `Mantenimiento Programado. se comienza con mantencion programada pm 500 con numero de ot:520219. se drena y rellena aceite de mazas 44 litros, se realiza cambio de filtro de motor, transmision y combustible. se realiza chequeo de rejillas y tapones magneticos ot:520221. se cambio sellos a tapon valvula control ot:538702.`

const exampleSummary2 = `### Resumen de actividades realizadas
- Relleno - Drenaje y relleno de aceite de mazas (44 litros). OT:520219
- Reemplazo - Cambio de filtro de motor, transmision y combustible.
- Inspeccion - Chequeo de rejillas y tapones magneticos. OT:520221
- Reemplazo - Cambio de sellos a tapon de valvula control. OT:538702

### Listado de piezas y trabajos realizados
- Mazas : Relleno de 44 litros de aceite.
- Filtro de motor : Reemplazo.
- Filtro de transmision : Reemplazo.
- Filtro de combustible : Reemplazo.
- Rejillas : Inspeccion.
- Valvula control : Reemplazo de sellos.

### Desglose de piezas y actividades realizadas
| Pieza | Inspeccion | Relleno | Reparacion | Reemplazo |
|---|---|---|---|---|
| Mazas | | 44 litros de aceite | | |
| Filtro de motor | | | | Cambio |
| Filtro de transmision | | | | Cambio |
| Filtro de combustible | | | | Cambio |
| Rejillas | Chequeo OT:520221 | | | |
| Valvula control | | | | Cambio de sellos OT:538702 |

### Resumen de actividades por pieza
| Pieza | TipoActividad | DescripcionActividad |
|---|---|---|
| Mazas | Relleno | Drenaje y relleno de aceite (44 litros). OT:520219 |
| Filtro de motor | Reemplazo | Cambio de filtro. |
| Filtro de transmision | Reemplazo | Cambio de filtro. |
| Filtro de combustible | Reemplazo | Cambio de filtro. |
| Rejillas | Inspeccion | Chequeo de estado. OT:520221 |
| Valvula control | Reemplazo | Cambio de sellos de tapon. OT:538702 |`

const systemRelevance = `Eres un asistente de escritura.
Tu labor es revisar un registro y comprobar si contiene actividades relevantes de mantenimiento:
1. Si el registro contiene solo una actividad y es de tipo Logistica o Inspeccion, no es relevante.
2. Si el registro contiene unicamente piezas de tipo "Perno", "Golilla", "Calugas", "Goma", "Tuerca", "Cojin", "Camas", "Valvulas" o "Flexibles", no es relevante.
3. En cualquier otro caso, es relevante.

Formato de salida:
- flag: true/false`

const userRelevance = `Evalua el siguiente registro de detencion y responde si contiene actividades relevantes de mantenimiento.`

const systemMaintenanceType = `Debes identificar si el registro de mantencion es programado o no programado.

Formato de salida:
- is_scheduled: true/false
- scheduled_type: tipo de mantenimiento programado, solo si es programado`

const userMaintenanceType = `Identifica si la detencion presentada a continuacion fue programada o no programada.
- Si es programada y se tiene la informacion, especifica el tipo: PM-2000, PM-500, etc.
- Si es programada y no se tiene la informacion, indica si fue "Preventivo" o "Programado".
- Si no es programada, indica "No programado".`

const userClean = `Utilizando la seccion "Resumen de actividades por pieza" genera una nueva tabla aplicando estas reglas:
1. Una pieza es un elemento fisico unico. Los plurales o series se agrupan ("foco derecho e izquierdo" es "Focos").
2. Una pieza no puede ser una observacion general, "Fuga de", "Area de Huerta", "Chequeo Final" o "Mantencion Programada".
3. TipoActividad es Inspeccion, Relleno, Reparacion o Reemplazo. Cualquier otro tipo se omite.

Formato: | Pieza | TipoActividad | DescripcionActividad |, incluyendo OT y litros en la descripcion.
La tabla se llama "Resumen final de actividades por pieza".`

const exampleCleanOutput = `### Resumen final de actividades por pieza
| Pieza | TipoActividad | DescripcionActividad |
|---|---|---|
| Mazas | Relleno | Drenaje y relleno de aceite (44 litros). OT:520219 |
| Filtro de motor | Reemplazo | Cambio de filtro. |
| Filtro de transmision | Reemplazo | Cambio de filtro. |
| Filtro de combustible | Reemplazo | Cambio de filtro. |
| Rejillas | Inspeccion | Chequeo de estado. OT:520221 |
| Valvula control | Reemplazo | Cambio de sellos de tapon. OT:538702 |`

const systemShorten = `Eres un asistente de escritura.
Tu labor es sintetizar los trabajos mas importantes de un registro de mantencion para que sea facil de leer.
Considera el siguiente orden de importancia: Reemplazo > Reparacion > Relleno > Inspeccion.
No omitas detalles importantes y mantén consistencia con el registro de entrada.

Formato de salida:
- summary: sintesis breve de las actividades`

const userShorten = `Redacta de manera legible y concisa una sintesis de las actividades realizadas, basada en el "Resumen final de actividades por pieza".`

const systemJobs = `Eres un asistente de escritura. Tu labor es generar una lista ordenada de trabajos realizados sobre las piezas de un registro de mantencion.

Formato de salida:
- jobs: lista de trabajos
  - piece: nombre de la pieza
  - job_type: Inspeccion, Relleno, Reparacion, Reemplazo o Logistica
  - comment: extracto en el que se menciona la actividad
  - ot_number: numero de OT, si existe
  - liters: litros de relleno, si existe`

const userJobs = `Genera una lista ordenada de trabajos en base a la seccion "Resumen final de actividades por pieza" del registro de entrada.`

const systemComponentSummary = `Eres un ingeniero de mantenimiento evaluando registros.
Tu labor consiste en generar un resumen de la asignacion de cada pieza a un sistema, subsistema y componente.
Considera todas las piezas, usando el nombre de la pieza como base para la asignacion.`

const userComponentSummary = `Genera una asignacion de cada pieza a un sistema, subsistema y componente.
Todas las piezas deben ser asignadas a un sistema y subsistema dentro de estas opciones:
%s
1. Separa el nombre fundamental de la pieza de su posicion o detalle:
   | Nombre de Pieza | Posicion o ubicacion | Nombre del componente |
   | Mando final (izquierdo) | Izquierdo | Mando final |
   | Neumatico posicion 1 | Posicion 1 | Neumatico |
   | Tk direccion | -- | Tanque direccion |
2. Asigna cada componente a su sistema y subsistema, indicando si es critico:
   | Pieza | Sistema | Subsistema | Componente | Critico | Detalle |
   | Aceite de motor HW40 | Motor | Lubricacion | Aceite de motor | False | HW40 |

La tabla final se llama "Resumen de asignacion" e incluye todas las piezas del "Resumen final de actividades por pieza".`

const systemComponentMapping = `Debes identificar el sistema, subsistema y componente al que pertenece cada pieza para guardar el registro de mantencion.

Sistemas y subsistemas permitidos:
%s
Nota: componentes que NUNCA seran criticos (en ningun contexto): Mangueras, Ductos, Sensores, Termostatos, Cables, Pernos, Filtros, Cañerias, Lineas, Abrazaderas, Interruptores, Conectores u otros componentes de menor tamaño o relevancia.

Formato de salida:
- component_mapping: lista de piezas
  - piece: nombre de la pieza
  - hierarchy: system, subsystem, component, is_critical, detail`

const userComponentMapping = `Transforma la tabla "Resumen de asignacion" en la estructura de salida.
El objetivo es transformar cada pieza a una estructura sencilla que permita ubicarla.`

const focusPieces = "Centrate principalmente en las siguientes piezas: %s.\n"
